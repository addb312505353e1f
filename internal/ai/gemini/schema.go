package gemini

import "google.golang.org/genai"

func str(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description}
}

func unitScore(description string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeNumber,
		Description: description,
		Minimum:     genai.Ptr(0.0),
		Maximum:     genai.Ptr(1.0),
	}
}

func area(name, description string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeObject,
		Description: description,
		Properties: map[string]*genai.Schema{
			"score":    unitScore("A score rating the " + name + " of the response between 0 and 1"),
			"feedback": str("A short feedback message on the " + name + " of the response"),
		},
		Required: []string{"score", "feedback"},
	}
}

var questionsResponseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"jobTitle": str("The job title"),
		"employer": str("The employer"),
		"keySkills": {
			Type:        genai.TypeArray,
			Description: "The key skills required for the job",
			Items:       str("A key skill"),
		},
		"category": str("The category of the job, for example Financial Services, Marketing, Human Resources"),
		"questions": {
			Type:        genai.TypeArray,
			Description: "Interview questions for this job grouped by category",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"category": str("Competency Questions, Technical Questions or Situational Questions"),
					"questions": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"question": str("The question"),
							},
							Required: []string{"question"},
						},
					},
				},
				Required: []string{"category", "questions"},
			},
		},
	},
	Required:         []string{"jobTitle", "employer", "keySkills", "category", "questions"},
	PropertyOrdering: []string{"jobTitle", "employer", "keySkills", "category", "questions"},
}

var feedbackResponseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"score":          unitScore("A score rating the candidate's response between 0 and 1"),
		"feedback":       str("A short feedback message on the candidate's response"),
		"improvedAnswer": str("The candidate's answer rewritten to improve it, without markdown"),
		"suggestions": {
			Type:        genai.TypeArray,
			Description: "Suggestions for the candidate to improve their answer",
			Items:       str("A suggestion"),
		},
		"areas": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"clarity":    area("clarity", "Assess the clarity of the response"),
				"relevance":  area("relevance", "Assess the relevance of the response to the question asked"),
				"structure":  area("structure", "Assess the structure of the response, including use of STAR where relevant"),
				"competency": area("competency", "Assess the candidate's competency in the question asked"),
			},
			Required: []string{"clarity", "relevance", "structure", "competency"},
		},
	},
	Required:         []string{"score", "feedback", "improvedAnswer", "suggestions", "areas"},
	PropertyOrdering: []string{"score", "feedback", "improvedAnswer", "suggestions", "areas"},
}
