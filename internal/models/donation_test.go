package models

import "testing"

func TestCreateDonationValidate(t *testing.T) {
	valid := CreateDonationRequest{
		Title:       "Oak table",
		Description: "Solid oak dining table",
		Category:    "furniture",
		Condition:   "good",
		Location:    "Springfield",
	}
	if errs := valid.Validate(); len(errs) != 0 {
		t.Errorf("valid request: errors = %v", errs)
	}

	tests := []struct {
		name      string
		mutate    func(*CreateDonationRequest)
		wantField string
	}{
		{"missing title", func(r *CreateDonationRequest) { r.Title = "" }, "title"},
		{"missing description", func(r *CreateDonationRequest) { r.Description = "" }, "description"},
		{"missing category", func(r *CreateDonationRequest) { r.Category = "" }, "category"},
		{"missing location", func(r *CreateDonationRequest) { r.Location = "" }, "location"},
		{"unknown condition", func(r *CreateDonationRequest) { r.Condition = "broken" }, "condition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			errs := req.Validate()
			if _, ok := errs[tt.wantField]; !ok {
				t.Errorf("errors = %v, want entry for %q", errs, tt.wantField)
			}
		})
	}
}
