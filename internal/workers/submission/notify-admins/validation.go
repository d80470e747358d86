package notifyadmins

import "intake-notifications/internal/common/validation"

// GetInputSchema describes the job variables read by the worker. Other
// process variables are allowed through.
func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:                 "object",
		Required:             []string{"submission"},
		AdditionalProperties: true,
		Properties: map[string]validation.Property{
			"submission": {
				Type:        "object",
				Description: "Submission record that was just persisted",
				Required:    []string{"id"},
				Properties: map[string]validation.Property{
					"id": {
						Type:      "string",
						MinLength: intPtr(1),
						MaxLength: intPtr(128),
					},
					"projectName": {Type: "string", MaxLength: intPtr(500)},
					"department":  {Type: "string", MaxLength: intPtr(255)},
					"officerName": {Type: "string", MaxLength: intPtr(255)},
					"status":      {Type: "string", MaxLength: intPtr(50)},
				},
			},
			"recipients": {
				Type:        "array",
				Description: "Explicit recipient addresses; defaults to the admin directory",
				Items:       &validation.Property{Type: "string", MaxLength: intPtr(320)},
			},
		},
	}
}

func intPtr(i int) *int {
	return &i
}
