/*
scenarios_test.go - Tests for the demo scenario loaders

Tests for:
- Step outcomes of each scenario (submitted, refused, approved, rejected)
- Loading the same scenario twice
*/
package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	// GIVEN: An empty store
	srv := newTestServer(t)

	// WHEN: Loading the hourly permit scenario
	rec := do(t, srv, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "hourly-permits"})

	// THEN: The third permit in the half-month is refused
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[struct {
		Steps []StepOutcome `json:"steps"`
	}](t, rec)
	require.Len(t, resp.Steps, 4)
	outcomes := []string{resp.Steps[0].Outcome, resp.Steps[1].Outcome, resp.Steps[2].Outcome, resp.Steps[3].Outcome}
	assert.Equal(t, []string{"submitted", "submitted", "refused", "submitted"}, outcomes)
	assert.Equal(t, []string{"HALF_MONTH_LIMIT"}, resp.Steps[2].Codes)

	// AND: Loading it again conflicts
	rec = do(t, srv, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "hourly-permits"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoadScenario_BenefitApproval(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "benefit-approval"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[struct {
		Steps []StepOutcome `json:"steps"`
	}](t, rec)
	require.Len(t, resp.Steps, 2)
	assert.Equal(t, "approved", resp.Steps[0].Outcome)
	assert.Equal(t, "rejected", resp.Steps[1].Outcome)

	counter := decode[CounterDTO](t, do(t, srv, http.MethodGet, "/api/employees/demo-benefits/counters/2026", nil))
	assert.Equal(t, 3, counter.MaternalCareDays)
}

func TestScenarios_ListAndUnknown(t *testing.T) {
	srv := newTestServer(t)

	list := decode[[]ScenarioDTO](t, do(t, srv, http.MethodGet, "/api/scenarios", nil))
	assert.Len(t, list, 3)

	rec := do(t, srv, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
