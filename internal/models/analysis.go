package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	RegressionLinear    = "linear"
	RegressionNonLinear = "non_linear"

	ArityUnary = "single"
	ArityMulti = "multi"

	ModeSingleRegion = "single_region"
	ModeMultiRegion  = "multi_region"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// translateValidation turns the first validator failure into a ValidationError
// with a message a client can act on.
func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	field := fe.Field()
	var msg string
	switch fe.Tag() {
	case "required":
		msg = field + " is required"
	case "min":
		msg = fmt.Sprintf("%s must contain at least %s entries", field, fe.Param())
	case "oneof":
		msg = fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte", "lte":
		msg = fmt.Sprintf("%s is out of range", field)
	case "gtefield":
		msg = fmt.Sprintf("%s must not be before %s", field, "year_from")
	default:
		msg = fmt.Sprintf("%s is invalid", field)
	}
	return &ValidationError{Field: field, Value: fmt.Sprint(fe.Value()), Message: msg}
}

// AnalysisRequest is the body of POST /api/analysis.
type AnalysisRequest struct {
	Cities              []string `json:"cities" validate:"required,min=1,dive,required"`
	RegressionType      string   `json:"regression_type" validate:"required,oneof=linear non_linear"`
	AnalysisType        string   `json:"analysis_type" validate:"required,oneof=single multi"`
	IndependentVariable string   `json:"independent_variable,omitempty"`
	DependentVariable   string   `json:"dependent_variable,omitempty"`
	Variables           []string `json:"variables,omitempty"`
	YearFrom            int      `json:"year_from,omitempty" validate:"omitempty,gte=1900,lte=2200"`
	YearTo              int      `json:"year_to,omitempty" validate:"omitempty,gte=1900,lte=2200,gtefield=YearFrom"`
	Language            string   `json:"language,omitempty" validate:"omitempty,oneof=en id"`
}

// Validate checks the request shape. All failures are *ValidationError.
func (r *AnalysisRequest) Validate() error {
	if err := requestValidator().Struct(r); err != nil {
		return translateValidation(err)
	}

	switch r.AnalysisType {
	case ArityUnary:
		if strings.TrimSpace(r.IndependentVariable) == "" || strings.TrimSpace(r.DependentVariable) == "" {
			return &ValidationError{Field: "independent_variable", Message: "independent_variable and dependent_variable are required for single analysis"}
		}
	case ArityMulti:
		if len(r.Variables) < 2 {
			return &ValidationError{Field: "variables", Value: fmt.Sprint(len(r.Variables)), Message: "at least 2 variables required"}
		}
	}

	seen := make(map[string]bool)
	for _, v := range r.VariableNames() {
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: "variables", Message: "variable names must not be empty"}
		}
		if seen[v] {
			return &ValidationError{Field: "variables", Value: v, Message: fmt.Sprintf("variable %q is listed more than once", v)}
		}
		seen[v] = true
	}

	if _, err := r.RegionKeys(); err != nil {
		return err
	}
	return nil
}

// VariableNames lists every analyzed variable, dependent last.
func (r *AnalysisRequest) VariableNames() []string {
	if r.AnalysisType == ArityUnary {
		return []string{r.IndependentVariable, r.DependentVariable}
	}
	return append([]string(nil), r.Variables...)
}

// Independents returns the independent variables in request order.
func (r *AnalysisRequest) Independents() []string {
	names := r.VariableNames()
	return names[:len(names)-1]
}

// Dependent returns the dependent variable.
func (r *AnalysisRequest) Dependent() string {
	names := r.VariableNames()
	return names[len(names)-1]
}

// Mode is single_region or multi_region.
func (r *AnalysisRequest) Mode() string {
	if len(r.Cities) > 1 {
		return ModeMultiRegion
	}
	return ModeSingleRegion
}

// RegionKeys parses the cities field.
func (r *AnalysisRequest) RegionKeys() ([]Region, error) {
	regions := make([]Region, 0, len(r.Cities))
	for _, c := range r.Cities {
		region, err := ParseRegion(c)
		if err != nil {
			return nil, err
		}
		regions = append(regions, region)
	}
	return regions, nil
}

// Years returns the requested year range, or nil when unbounded.
func (r *AnalysisRequest) Years() *YearRange {
	if r.YearFrom == 0 && r.YearTo == 0 {
		return nil
	}
	return &YearRange{From: r.YearFrom, To: r.YearTo}
}

// VariablesAnalyzed names the roles of the analyzed variables.
type VariablesAnalyzed struct {
	Independent []string `json:"independent"`
	Dependent   string   `json:"dependent"`
}

// AnalysisData echoes the panel the model was fitted on.
type AnalysisData struct {
	Years             []int                `json:"years"`
	Regions           []string             `json:"regions,omitempty"`
	IndependentValues map[string][]float64 `json:"independent_values"`
	DependentValues   []float64            `json:"dependent_values"`
	FittedValues      []float64            `json:"fitted_values"`
	Residuals         []float64            `json:"residuals,omitempty"`
}

// PearsonResult is the correlation between the single independent and the dependent variable.
type PearsonResult struct {
	Coefficient float64  `json:"coefficient"`
	PValue      *float64 `json:"p_value"`
}

// DiagnosticsResult holds residual diagnostics. Omitted fields could not be computed.
type DiagnosticsResult struct {
	DurbinWatson       *float64 `json:"durbin_watson,omitempty"`
	BreuschPaganStat   *float64 `json:"breusch_pagan_stat,omitempty"`
	BreuschPaganPValue *float64 `json:"breusch_pagan_pvalue,omitempty"`
}

// RegionStatistic summarizes one region's share of a multi-region panel.
type RegionStatistic struct {
	Observations  int     `json:"observations"`
	DependentMean float64 `json:"dependent_mean"`
}

// AnalysisDetails carries the fitted model. Inferential fields are only set
// for linear fits and are null when not computable.
type AnalysisDetails struct {
	RSquared            float64                       `json:"r_squared"`
	AdjRSquared         *float64                      `json:"adj_r_squared,omitempty"`
	Terms               []string                      `json:"terms"`
	Coefficients        map[string]float64            `json:"coefficients"`
	Intercept           *float64                      `json:"intercept,omitempty"`
	StdErrors           map[string]*float64           `json:"std_errors,omitempty"`
	TValues             map[string]*float64           `json:"t_values,omitempty"`
	PValues             map[string]*float64           `json:"p_values,omitempty"`
	ConfidenceIntervals map[string][2]float64         `json:"confidence_intervals,omitempty"`
	FStatistic          *float64                      `json:"f_statistic,omitempty"`
	FPValue             *float64                      `json:"f_pvalue,omitempty"`
	Interpretation      string                        `json:"interpretation"`
	Data                AnalysisData                  `json:"data"`
	Correlations        map[string]map[string]float64 `json:"correlations"`
	Pearson             *PearsonResult                `json:"pearson,omitempty"`
	Diagnostics         *DiagnosticsResult            `json:"diagnostics,omitempty"`
	RegionStatistics    map[string]RegionStatistic    `json:"region_statistics,omitempty"`
	TotalObservations   int                           `json:"total_observations"`
}

// AnalysisResponse is the body returned by POST /api/analysis.
type AnalysisResponse struct {
	AnalysisMode      string            `json:"analysis_mode"`
	Regions           []string          `json:"regions"`
	RegressionType    string            `json:"regression_type"`
	AnalysisType      string            `json:"analysis_type"`
	VariablesAnalyzed VariablesAnalyzed `json:"variables_analyzed"`
	CategoryNames     map[string]string `json:"category_names"`
	Summary           string            `json:"summary"`
	Details           AnalysisDetails   `json:"details"`
}

// PredictionRequest is the body of POST /api/predict.
type PredictionRequest struct {
	City                string   `json:"city" validate:"required"`
	AnalysisType        string   `json:"analysis_type" validate:"omitempty,eq=single"`
	IndependentVariable string   `json:"independent_variable" validate:"required"`
	DependentVariable   string   `json:"dependent_variable" validate:"required"`
	IndependentValue    *float64 `json:"independent_value" validate:"required"`
}

func (r *PredictionRequest) Validate() error {
	if err := requestValidator().Struct(r); err != nil {
		return translateValidation(err)
	}
	if r.IndependentVariable == r.DependentVariable {
		return &ValidationError{Field: "dependent_variable", Value: r.DependentVariable, Message: "independent_variable and dependent_variable must differ"}
	}
	_, err := ParseRegion(r.City)
	return err
}

type PredictionInput struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type PredictionOutput struct {
	Name           string  `json:"name"`
	PredictedValue float64 `json:"predicted_value"`
}

type ConfidenceMetrics struct {
	RSquared float64 `json:"r_squared"`
}

type Predictions struct {
	IndependentVariable PredictionInput   `json:"independent_variable"`
	DependentVariable   PredictionOutput  `json:"dependent_variable"`
	ConfidenceMetrics   ConfidenceMetrics `json:"confidence_metrics"`
}

// PredictionResponse is the body returned by POST /api/predict.
type PredictionResponse struct {
	City        string      `json:"city"`
	Predictions Predictions `json:"predictions"`
}
