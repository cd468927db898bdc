package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"loan-approval/internal/applicant"
	"loan-approval/internal/ml"
	"loan-approval/internal/report"
)

func main() {
	fmt.Println("🧪 Testing Loan Model Integration")
	fmt.Println("=================================")

	// Get models directory from args or use default
	modelsDir := "models"
	if len(os.Args) > 1 {
		modelsDir = os.Args[1]
	}

	absPath, err := filepath.Abs(modelsDir)
	if err != nil {
		log.Fatalf("❌ Failed to get absolute path: %v", err)
	}

	fmt.Printf("📁 Models dir: %s\n", absPath)

	// Test 1: Load models
	fmt.Println("\n🔧 Test 1: Loading classifier and regressor...")
	models, err := ml.LoadModels(absPath, ml.LoadOptions{})
	if err != nil {
		log.Fatalf("❌ Failed to load models: %v", err)
	}
	for _, info := range models.Info() {
		fmt.Printf("  ✅ %s %s: %d trees, %d features\n", info.Kind, info.Version, info.Trees, len(info.Features))
	}

	ctx := context.Background()

	// Test 2: Scenarios across thresholds
	fmt.Println("\n🔧 Test 2: Testing prediction with sample applicants...")
	testCases := []struct {
		name     string
		modify   func(applicant.Record)
		expected string
	}{
		{"Sample applicant", func(applicant.Record) {}, "Should likely approve"},
		{"Low CIBIL score", func(r applicant.Record) { r[applicant.CibilScore] = 420 }, "Should likely reject"},
		{"Short term, low income", func(r applicant.Record) {
			r[applicant.LoanTerm] = 4
			r[applicant.IncomeAnnum] = 200000.0
		}, "Mixed result"},
	}

	for i, tc := range testCases {
		rec := applicant.Sample()
		tc.modify(rec)
		fmt.Printf("\n  Test 2.%d: %s\n", i+1, tc.name)

		for _, threshold := range []float64{0.5, 0.6, 0.8} {
			predictor, err := ml.NewPredictor(models, threshold, nil)
			if err != nil {
				log.Fatalf("❌ Failed to create predictor: %v", err)
			}
			res, err := predictor.Predict(ctx, rec)
			if err != nil {
				fmt.Printf("    ❌ Prediction failed: %v\n", err)
				continue
			}
			status := "❌ " + report.Status(res)
			if res.Approved {
				status = fmt.Sprintf("✅ %s (%s)", report.Status(res), report.FormatCurrency(*res.RecommendedValue))
			}
			fmt.Printf("    Threshold %.2f: %s, probability %s\n", threshold, status, report.FormatPercent(res.Probability))
		}

		fmt.Printf("    💡 Expected: %s\n", tc.expected)
	}

	predictor, err := ml.NewPredictor(models, 0.6, nil)
	if err != nil {
		log.Fatalf("❌ Failed to create predictor: %v", err)
	}

	// Test 3: Sweep credit scores
	fmt.Println("\n🔧 Test 3: Sweeping CIBIL scores...")

	approvalCount := 0
	totalTests := 0
	for score := 300; score <= 900; score += 10 {
		rec := applicant.Sample()
		rec[applicant.CibilScore] = score
		res, err := predictor.Predict(ctx, rec)
		if err != nil {
			log.Fatalf("❌ Prediction failed for score %d: %v", score, err)
		}
		if res.Approved {
			approvalCount++
		}
		totalTests++
	}

	approvalRate := float64(approvalCount) / float64(totalTests) * 100
	fmt.Printf("  📊 Approval rate: %.1f%% (%d/%d)\n", approvalRate, approvalCount, totalTests)

	if approvalRate > 80 {
		fmt.Println("  ⚠️  Warning: Very high approval rate - model may be too permissive")
	} else if approvalRate < 10 {
		fmt.Println("  ⚠️  Warning: Very low approval rate - model may be too restrictive")
	} else {
		fmt.Println("  ✅ Approval rate looks reasonable")
	}

	// Test 4: Edge cases
	fmt.Println("\n🔧 Test 4: Testing edge cases...")

	edgeCases := []struct {
		name   string
		modify func(applicant.Record)
	}{
		{"Missing field", func(r applicant.Record) { delete(r, applicant.LoanAmount) }},
		{"Null value", func(r applicant.Record) { r[applicant.Education] = nil }},
		{"NaN value", func(r applicant.Record) { r[applicant.IncomeAnnum] = math.NaN() }},
		{"Unknown category", func(r applicant.Record) { r[applicant.SelfEmployed] = "Sometimes" }},
		{"Extreme values", func(r applicant.Record) { r[applicant.LoanAmount] = 1e12 }},
	}

	for i, tc := range edgeCases {
		rec := applicant.Sample()
		tc.modify(rec)
		fmt.Printf("  Test 4.%d: %s\n", i+1, tc.name)

		res, err := predictor.Predict(ctx, rec)
		var schemaErr *ml.SchemaMismatchError
		var missingErr *ml.MissingValueError
		switch {
		case errors.As(err, &schemaErr):
			fmt.Printf("    ❌ Schema mismatch (expected): %v\n", err)
		case errors.As(err, &missingErr):
			fmt.Printf("    ❌ Missing value (expected): %v\n", err)
		case err != nil:
			fmt.Printf("    ❌ Error: %v\n", err)
		default:
			fmt.Printf("    ✅ No error, status %s, probability %s\n", report.Status(res), report.FormatPercent(res.Probability))
		}
	}

	fmt.Println("\n🎉 All tests completed!")
	fmt.Println("========================")
}
