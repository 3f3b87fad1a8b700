package interpretation

// Language selects the phrasebook used to render text.
type Language string

const (
	English    Language = "en"
	Indonesian Language = "id"
)

// phrasebook holds every user-visible string for one language. Format verbs
// are positional in the order the renderer passes them.
type phrasebook struct {
	linearTitle     string // dependent
	polynomialTitle string // dependent

	modelSignificance string // significance label
	significance      map[Significance]string
	strength          map[Strength]string

	strengthLine           string // r² %, strength
	polynomialStrengthLine string // r² %, strength
	explainsLine           string // r² %, dependent
	polynomialExplainsLine string // r² %, dependent

	effectsHeader      string
	coefSignificant    string
	coefNotSignificant string
	coefUntested       string
	positive           string
	negative           string
	increases          string
	decreases          string
	coefLine           string // symbol, variable, direction, significance
	effectLine         string // variable, dependent, effect, |coef|

	curvatureHeader string
	curvatureLine1  string // dependent
	curvatureLine2  string
	coefHeader      string
	interceptLine   string // intercept
	termLine        string // index, term, value

	regionalHeader string
	regionLine     string // region, dependent, mean, n
	sampleLine     string // total n

	summaryTitle       string // place
	focusSingle        string // independent, dependent
	focusMulti         string // dependent
	independentList    string // joined names
	studyArea          string // place list
	methodLine         string // method name
	methodLinear       string
	methodPolynomial   string
	findingsHeader     string
	finding            map[Strength][2]string // [headline(r²), detail(dependent)]
	modelSignificant   string                 // p
	modelInsignificant string                 // p
	recommendHeader    string
	recommend          map[Recommendation][2]string
	variableSelection  string
}

var phrasebooks = map[Language]*phrasebook{
	English: {
		linearTitle:     "LINEAR REGRESSION ANALYSIS - %s\n\n",
		polynomialTitle: "NON-LINEAR (POLYNOMIAL) REGRESSION ANALYSIS - %s\n\n",

		modelSignificance: "🔍 MODEL SIGNIFICANCE: The model as a whole is %s\n\n",
		significance: map[Significance]string{
			VerySignificant:   "very significant (p < 0.001)",
			Significant:       "significant (p < 0.01)",
			FairlySignificant: "fairly significant (p < 0.05)",
			NotSignificant:    "not significant (p ≥ 0.05)",
		},
		strength: map[Strength]string{
			VeryStrong: "very strong",
			Strong:     "strong",
			Moderate:   "moderate",
			Weak:       "weak",
			VeryWeak:   "very weak",
		},

		strengthLine:           "📊 MODEL STRENGTH: R² = %.1f%% - %s relationship\n",
		polynomialStrengthLine: "📊 MODEL STRENGTH: R² = %.1f%% - %s non-linear relationship\n",
		explainsLine:           "   The model explains %.1f%% of the variation in %s\n\n",
		polynomialExplainsLine: "   The polynomial model explains %.1f%% of the variation in %s\n\n",

		effectsHeader:      "📈 VARIABLE EFFECTS:\n",
		coefSignificant:    "significant",
		coefNotSignificant: "not significant",
		coefUntested:       "not tested, too few observations",
		positive:           "positive",
		negative:           "negative",
		increases:          "increases",
		decreases:          "decreases",
		coefLine:           "   %s %s: %s effect (%s)\n",
		effectLine:         "     → Every 1-unit increase in %s: %s %s by %.3f units\n",

		curvatureHeader: "🔄 NON-LINEAR CHARACTERISTICS:\n",
		curvatureLine1:  "   The model captures a non-linear relationship between the independent variables and %s\n",
		curvatureLine2:  "   The relationship shows acceleration or deceleration in the variables' effect\n\n",
		coefHeader:      "📈 MODEL COEFFICIENTS:\n",
		interceptLine:   "   Intercept: %.3f\n",
		termLine:        "   Coefficient %d (%s): %.3f\n",

		regionalHeader: "\n🗺️ REGIONAL BREAKDOWN:\n",
		regionLine:     "   %s: mean %s = %.3f (n = %d)\n",
		sampleLine:     "   Total sample size: %d observations\n",

		summaryTitle:       "REGRESSION ANALYSIS SUMMARY - %s\n",
		focusSingle:        "🎯 FOCUS: Relationship of %s to %s\n",
		focusMulti:         "🎯 FOCUS: Multivariable influence on %s\n",
		independentList:    "   Independent variables: %s\n",
		studyArea:          "📍 STUDY AREA: %s\n",
		methodLine:         "📊 METHOD: %s Regression\n\n",
		methodLinear:       "Linear",
		methodPolynomial:   "Non-Linear (Polynomial)",
		findingsHeader:     "🔍 KEY FINDINGS:\n",
		finding: map[Strength][2]string{
			VeryStrong: {"   ✅ The model shows a VERY STRONG relationship (R² = %.1f%%)\n", "   ✅ %s can be predicted well from the independent variables\n"},
			Strong:     {"   ✅ The model shows a STRONG relationship (R² = %.1f%%)\n", "   ✅ The independent variables have a substantial influence on %s\n"},
			Moderate:   {"   ⚠️ The model shows a MODERATE relationship (R² = %.1f%%)\n", "   ⚠️ Other factors also influence %s\n"},
			Weak:       {"   ❌ The model shows a WEAK relationship (R² = %.1f%%)\n", "   ❌ The independent variables explain little of the variation in %s\n"},
		},
		modelSignificant:   "   ✅ The model is statistically significant (p = %.4f)\n",
		modelInsignificant: "   ❌ The model is not statistically significant (p = %.4f)\n",
		recommendHeader:    "\n💡 RECOMMENDATIONS:\n",
		recommend: map[Recommendation][2]string{
			UsableForPrediction: {"   → The model is usable for prediction of %s in %s\n", "   → The independent variables have a demonstrated influence\n"},
			NeedsMoreVariables:  {"   → The model needs additional variables to improve accuracy\n", "   → Investigate other factors that influence %s\n"},
			NotSuitable:         {"   → The model is not suitable for accurate prediction\n", "   → Identify more relevant variables for %s\n"},
		},
		variableSelection: "   → Consider variable selection to reduce model complexity\n",
	},

	Indonesian: {
		linearTitle:     "ANALISIS REGRESI LINEAR - %s\n\n",
		polynomialTitle: "ANALISIS REGRESI NON-LINEAR (POLYNOMIAL) - %s\n\n",

		modelSignificance: "🔍 SIGNIFIKANSI MODEL: Model secara keseluruhan %s\n\n",
		significance: map[Significance]string{
			VerySignificant:   "sangat signifikan (p < 0.001)",
			Significant:       "signifikan (p < 0.01)",
			FairlySignificant: "cukup signifikan (p < 0.05)",
			NotSignificant:    "tidak signifikan (p ≥ 0.05)",
		},
		strength: map[Strength]string{
			VeryStrong: "sangat kuat",
			Strong:     "kuat",
			Moderate:   "sedang",
			Weak:       "lemah",
			VeryWeak:   "sangat lemah",
		},

		strengthLine:           "📊 KEKUATAN MODEL: R² = %.1f%% - Hubungan %s\n",
		polynomialStrengthLine: "📊 KEKUATAN MODEL: R² = %.1f%% - Hubungan non-linear %s\n",
		explainsLine:           "   Model dapat menjelaskan %.1f%% variasi dalam %s\n\n",
		polynomialExplainsLine: "   Model polynomial dapat menjelaskan %.1f%% variasi dalam %s\n\n",

		effectsHeader:      "📈 PENGARUH VARIABEL:\n",
		coefSignificant:    "signifikan",
		coefNotSignificant: "tidak signifikan",
		coefUntested:       "tidak diuji, observasi terlalu sedikit",
		positive:           "positif",
		negative:           "negatif",
		increases:          "meningkat",
		decreases:          "menurun",
		coefLine:           "   %s %s: Pengaruh %s (%s)\n",
		effectLine:         "     → Setiap kenaikan 1 unit %s, %s %s sebesar %.3f unit\n",

		curvatureHeader: "🔄 KARAKTERISTIK NON-LINEAR:\n",
		curvatureLine1:  "   Model menangkap hubungan yang tidak linear antara variabel independen dan %s\n",
		curvatureLine2:  "   Hubungan ini menunjukkan adanya akselerasi atau deselerasi dalam pengaruh variabel\n\n",
		coefHeader:      "📈 KOEFISIEN MODEL:\n",
		interceptLine:   "   Intercept: %.3f\n",
		termLine:        "   Koefisien %d (%s): %.3f\n",

		regionalHeader: "\n🗺️ RINCIAN WILAYAH:\n",
		regionLine:     "   %s: rata-rata %s = %.3f (n = %d)\n",
		sampleLine:     "   Total ukuran sampel: %d observasi\n",

		summaryTitle:       "RINGKASAN ANALISIS REGRESI - %s\n",
		focusSingle:        "🎯 FOKUS ANALISIS: Hubungan %s terhadap %s\n",
		focusMulti:         "🎯 FOKUS ANALISIS: Pengaruh multivariabel terhadap %s\n",
		independentList:    "   Variabel independen: %s\n",
		studyArea:          "📍 WILAYAH STUDI: %s\n",
		methodLine:         "📊 METODE: Regresi %s\n\n",
		methodLinear:       "Linear",
		methodPolynomial:   "Non-Linear (Polynomial)",
		findingsHeader:     "🔍 TEMUAN UTAMA:\n",
		finding: map[Strength][2]string{
			VeryStrong: {"   ✅ Model menunjukkan hubungan yang SANGAT KUAT (R² = %.1f%%)\n", "   ✅ %s dapat diprediksi dengan baik menggunakan variabel independen\n"},
			Strong:     {"   ✅ Model menunjukkan hubungan yang KUAT (R² = %.1f%%)\n", "   ✅ Variabel independen memiliki pengaruh substansial terhadap %s\n"},
			Moderate:   {"   ⚠️ Model menunjukkan hubungan yang SEDANG (R² = %.1f%%)\n", "   ⚠️ Ada faktor lain yang juga mempengaruhi %s\n"},
			Weak:       {"   ❌ Model menunjukkan hubungan yang LEMAH (R² = %.1f%%)\n", "   ❌ Variabel independen kurang dapat menjelaskan variasi %s\n"},
		},
		modelSignificant:   "   ✅ Model secara statistik signifikan (p = %.4f)\n",
		modelInsignificant: "   ❌ Model secara statistik tidak signifikan (p = %.4f)\n",
		recommendHeader:    "\n💡 REKOMENDASI:\n",
		recommend: map[Recommendation][2]string{
			UsableForPrediction: {"   → Model dapat digunakan untuk prediksi %s di %s\n", "   → Variabel independen terbukti berpengaruh kuat\n"},
			NeedsMoreVariables:  {"   → Model memerlukan variabel tambahan untuk meningkatkan akurasi\n", "   → Perlu kajian faktor lain yang mempengaruhi %s\n"},
			NotSuitable:         {"   → Model tidak cocok untuk prediksi yang akurat\n", "   → Perlu identifikasi variabel yang lebih relevan untuk %s\n"},
		},
		variableSelection: "   → Pertimbangkan seleksi variabel untuk mengurangi kompleksitas model\n",
	},
}

func lookup(lang Language) *phrasebook {
	if pb, ok := phrasebooks[lang]; ok {
		return pb
	}
	return phrasebooks[English]
}

// Supported reports whether lang has a phrasebook.
func Supported(lang Language) bool {
	_, ok := phrasebooks[lang]
	return ok
}
