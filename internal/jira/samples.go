package jira

var devopsProject = &Project{Key: "DEVOPS", Name: "DevOps Automation"}

// SampleTickets returns the canned issues used to exercise the intake
// without a Jira instance.
func SampleTickets() []Issue {
	todo := &Named{ID: "1", Name: "To Do"}
	return []Issue{
		{
			ID:  "10001",
			Key: "DEVOPS-101",
			Fields: Fields{
				Summary:     "Add CSV export functionality to todo dashboard",
				Description: "As a user, I want to export my todos to CSV format so I can analyze them in Excel. The export should include all todo details: title, description, priority, category, completion status, and creation date. Add an export button that shows the number of todos being exported.",
				IssueType:   Named{ID: "10001", Name: "Story"},
				Priority:    &Named{ID: "2", Name: "High"},
				Status:      todo,
				Project:     devopsProject,
				Creator:     &User{Name: "product-manager", DisplayName: "Product Manager", EmailAddress: "pm@example.com", Active: true},
				Assignee:    &User{Name: "frontend-dev", DisplayName: "Frontend Developer", EmailAddress: "frontend@example.com", Active: true},
				Labels:      []string{"frontend", "export", "automation"},
			},
		},
		{
			ID:  "10002",
			Key: "DEVOPS-102",
			Fields: Fields{
				Summary:     "Implement real-time search and filtering",
				Description: "Add a search bar that allows users to filter todos in real-time. The search should work on both title and description fields. Include a clear button to reset the search and show filtered count vs total count.",
				IssueType:   Named{ID: "10001", Name: "Story"},
				Priority:    &Named{ID: "3", Name: "Medium"},
				Status:      todo,
				Project:     devopsProject,
				Creator:     &User{Name: "ux-designer", DisplayName: "UX Designer", EmailAddress: "ux@example.com", Active: true},
				Assignee:    &User{Name: "fullstack-dev", DisplayName: "Fullstack Developer", EmailAddress: "fullstack@example.com", Active: true},
				Labels:      []string{"search", "automation"},
			},
		},
		{
			ID:  "10003",
			Key: "DEVOPS-103",
			Fields: Fields{
				Summary:     "Fix todo deletion confirmation dialog styling",
				Description: "The delete confirmation dialog is not properly styled and hard to read. Update the styling to match the application theme and ensure good contrast for accessibility.",
				IssueType:   Named{ID: "10004", Name: "Bug"},
				Priority:    &Named{ID: "2", Name: "High"},
				Status:      todo,
				Project:     devopsProject,
				Creator:     &User{Name: "qa-tester", DisplayName: "QA Tester", EmailAddress: "qa@example.com", Active: true},
				Assignee:    &User{Name: "ui-developer", DisplayName: "UI Developer", EmailAddress: "ui@example.com", Active: true},
				Labels:      []string{"bug", "ui", "automation"},
			},
		},
	}
}

// ExportTestIssue is the issue behind the /test/export smoke endpoint.
func ExportTestIssue() Issue {
	return Issue{
		Key: "TEST-EXPORT-001",
		Fields: Fields{
			Summary:     "Add CSV export functionality to todo app",
			Description: "Users need to be able to export their todos to CSV format for external analysis. The export should include all todo fields: title, description, priority, category, completion status, and creation date.",
			IssueType:   Named{Name: "Story"},
		},
	}
}
