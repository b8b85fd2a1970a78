package pipeline

import (
	"reflect"
	"testing"
)

func TestResolveIndices(t *testing.T) {
	indexList := []string{"acme-codebase", "acme-issues", "acme-prs", "acme-jira", "acme-wiki"}

	tests := []struct {
		datasource string
		want       []string
	}{
		{PlanCodebase, []string{"acme-codebase"}},
		{PlanGithubIssue, []string{"acme-issues"}},
		{PlanPRHistory, []string{"acme-prs"}},
		{PlanJiraIssue, []string{"acme-jira"}},
		{"unknown", nil},
	}

	for _, tt := range tests {
		t.Run(tt.datasource, func(t *testing.T) {
			got := resolveIndices(tt.datasource, indexList)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("resolveIndices(%s) = %v, want %v", tt.datasource, got, tt.want)
			}
		})
	}

	t.Run("alternate suffix spellings", func(t *testing.T) {
		got := resolveIndices(PlanCodebase, []string{"team-code", "team-pulls"})
		if !reflect.DeepEqual(got, []string{"team-code"}) {
			t.Errorf("got %v", got)
		}
		got = resolveIndices(PlanPRHistory, []string{"team-code", "team-pulls"})
		if !reflect.DeepEqual(got, []string{"team-pulls"}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("empty index list", func(t *testing.T) {
		if got := resolveIndices(PlanCodebase, nil); got != nil {
			t.Errorf("got %v, want nil", got)
		}
	})

	t.Run("index matched at most once", func(t *testing.T) {
		// "codebase" contains both the "codebase" and "code" suffixes.
		got := resolveIndices(PlanCodebase, []string{"acme-codebase"})
		if len(got) != 1 {
			t.Errorf("got %v, want single match", got)
		}
	})
}

func TestPerIndexBudget(t *testing.T) {
	tests := []struct {
		name         string
		totalIndices int
		minK         int
		globalBudget int
		want         int
	}{
		{"even split", 4, 3, 12, 3},
		{"floor kicks in", 6, 3, 12, 3},
		{"few indices get more", 2, 3, 12, 6},
		{"single index takes all", 1, 3, 12, 12},
		{"zero indices fall back to floor", 0, 3, 12, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := perIndexBudget(tt.totalIndices, tt.minK, tt.globalBudget); got != tt.want {
				t.Errorf("perIndexBudget(%d, %d, %d) = %d, want %d",
					tt.totalIndices, tt.minK, tt.globalBudget, got, tt.want)
			}
		})
	}
}
