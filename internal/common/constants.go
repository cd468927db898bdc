package common

// Environment variable keys
const (
	EnvConfigFile        = "CONFIG_FILE"
	EnvModelsDir         = "MODELS_DIR"
	EnvClassifierFile    = "CLASSIFIER_FILE"
	EnvRegressorFile     = "REGRESSOR_FILE"
	EnvApprovalThreshold = "APPROVAL_THRESHOLD"
	EnvWebPort           = "WEB_PORT"
	EnvReadTimeout       = "READ_TIMEOUT"
	EnvWriteTimeout      = "WRITE_TIMEOUT"
	EnvAPITimeout        = "API_TIMEOUT"
	EnvLogLevel          = "LOG_LEVEL"
)

// Configuration defaults
const (
	DefaultModelsDir         = "models"
	DefaultClassifierFile    = "stage_1_rf_classifier_pipeline.json"
	DefaultRegressorFile     = "stage_2_rf_regression_pipeline.json"
	DefaultApprovalThreshold = 0.60
	DefaultWebPort           = 8501
	DefaultLogLevel          = "info"
	DotEnvFile               = ".env"
)

// Validation constants
const (
	MinApprovalThreshold = 0.0
	MaxApprovalThreshold = 1.0
	MinWebPort           = 1024
	MaxWebPort           = 65535
)

// Regression stage flag appended to approved applicants.
const (
	LoanStatusFeature = "loan_status"
	LoanStatusApprove = "Approve"
)

// Error kinds reported by metrics and the JSON API.
const (
	ErrKindSchemaMismatch = "schema_mismatch"
	ErrKindMissingValue   = "missing_value"
	ErrKindInvalidInput   = "invalid_input"
	ErrKindCanceled       = "canceled"
	ErrKindInternal       = "internal"
)
