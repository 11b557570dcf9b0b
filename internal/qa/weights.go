package qa

// staticWeights is the fixed trust table keyed by engine identity and
// question type. It encodes which engine we believe for which kind of
// question: the intra-taskmap engine is authoritative for ingredient and
// step questions, the corpus engine for general domain questions, and the
// language model for chit chat and open-ended comparisons.
var staticWeights = map[EngineID]map[QuestionType]float64{
	EngineTaskQA: {
		QuestionIngredient:    1.0,
		QuestionStep:          1.0,
		QuestionSubstitution:  0.6,
		QuestionCurrentOption: 0.4,
		QuestionGeneral:       0.5,
		QuestionChitChat:      0.1,
	},
	EngineGeneralQA: {
		QuestionIngredient:    0.5,
		QuestionStep:          0.4,
		QuestionSubstitution:  0.5,
		QuestionCurrentOption: 0.3,
		QuestionGeneral:       0.9,
		QuestionChitChat:      0.2,
	},
	EngineLLMQA: {
		QuestionIngredient:    0.6,
		QuestionStep:          0.6,
		QuestionSubstitution:  0.8,
		QuestionCurrentOption: 0.8,
		QuestionGeneral:       0.7,
		QuestionChitChat:      0.9,
	},
}

// defaultWeight applies to engine/question pairs missing from the table.
const defaultWeight = 0.3

// StaticWeight returns the trust weight for an engine answering a given
// question type.
func StaticWeight(id EngineID, qt QuestionType) float64 {
	if row, ok := staticWeights[id]; ok {
		if w, ok := row[qt]; ok {
			return w
		}
	}
	return defaultWeight
}
