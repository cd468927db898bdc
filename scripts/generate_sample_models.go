package main

import (
	"flag"
	"fmt"
	"log"

	"loan-approval/internal/common"
	"loan-approval/internal/ml/demo"
)

func main() {
	var (
		modelsDir      = flag.String("models", common.DefaultModelsDir, "Models directory path")
		classifierFile = flag.String("classifier", common.DefaultClassifierFile, "Classifier artifact file name")
		regressorFile  = flag.String("regressor", common.DefaultRegressorFile, "Regressor artifact file name")
	)
	flag.Parse()

	fmt.Println("Generating demo model artifacts...")
	fmt.Printf("  Models Dir: %s\n", *modelsDir)
	fmt.Printf("  Classifier: %s\n", *classifierFile)
	fmt.Printf("  Regressor: %s\n", *regressorFile)

	if err := demo.WriteModels(*modelsDir, *classifierFile, *regressorFile); err != nil {
		log.Fatalf("Failed to write models: %v", err)
	}

	fmt.Printf("✓ Generated demo models (version %s)\n", demo.Version)
	fmt.Printf("  Sample applicant: %.2f%% approval, %.2f recommended\n",
		demo.SampleProbability*100, demo.SampleValue)
}
