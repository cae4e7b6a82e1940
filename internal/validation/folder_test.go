package validation

import "testing"

func TestValidateFolderName(t *testing.T) {
	valid := []string{"deliverables", "final-cut", "rev-2", "abc"}
	for _, name := range valid {
		if err := ValidateFolderName(name); err != nil {
			t.Errorf("expected %q to be valid, got %v", name, err)
		}
	}

	invalid := []string{
		"",
		"ab",
		"Deliverables",
		"final cut",
		"final_cut",
		"-deliverables",
		"deliverables-",
		"admin",
		"metrics",
		"this-name-is-way-too-long-to-be-a-reasonable-folder-name-for-anyone",
	}
	for _, name := range invalid {
		if err := ValidateFolderName(name); err == nil {
			t.Errorf("expected %q to be rejected", name)
		}
	}
}
