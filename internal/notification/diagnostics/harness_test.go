package diagnostics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake-notifications/internal/common/logger"
	"intake-notifications/internal/notification/resolver"
	"intake-notifications/internal/notification/service"
	"intake-notifications/internal/notification/template"
)

type MockFacade struct {
	configured bool
	TestFunc   func(ctx context.Context, address string) service.TestResult
	tested     []string
}

func (m *MockFacade) IsConfigured() bool { return m.configured }

func (m *MockFacade) Test(ctx context.Context, address string) service.TestResult {
	m.tested = append(m.tested, address)
	if m.TestFunc == nil {
		return service.TestResult{Success: true, Message: "Test notification sent to " + address}
	}
	return m.TestFunc(ctx, address)
}

type MockDirectory struct {
	AdminEmailsFunc func(ctx context.Context) ([]string, error)
}

func (m *MockDirectory) AdminEmails(ctx context.Context) ([]string, error) {
	return m.AdminEmailsFunc(ctx)
}

func admins(emails ...string) *MockDirectory {
	return &MockDirectory{AdminEmailsFunc: func(context.Context) ([]string, error) { return emails, nil }}
}

func newHarness(t *testing.T, facade Facade, dir AdminDirectory) *Harness {
	env := resolver.NewEnvironmentStrategy(resolver.StaticLookup(resolver.MechanismProcessEnv, nil))
	return NewHarness(env, facade, dir, template.NewDefaultBuilder(time.UTC), logger.NewTestLogger(t))
}

func TestCheckEnvironment(t *testing.T) {
	tests := []struct {
		name           string
		lookups        []resolver.Lookup
		wantFound      int
		wantMissing    []string
		wantConfigured bool
	}{
		{
			name:        "nothing set",
			lookups:     []resolver.Lookup{resolver.StaticLookup(resolver.MechanismProcessEnv, nil)},
			wantMissing: resolver.RequiredVars,
		},
		{
			name: "two of three with a sentinel",
			lookups: []resolver.Lookup{
				resolver.StaticLookup(resolver.MechanismProcessEnv, map[string]string{
					resolver.VarServiceID:  "svc1",
					resolver.VarPublicKey:  "your_public_key",
					resolver.VarTemplateID: "tpl1",
				}),
			},
			wantFound:   2,
			wantMissing: []string{resolver.VarPublicKey},
		},
		{
			name: "split across mechanisms",
			lookups: []resolver.Lookup{
				resolver.StaticLookup(resolver.MechanismProcessEnv, map[string]string{resolver.VarServiceID: "svc1"}),
				resolver.StaticLookup(resolver.MechanismDotEnv, map[string]string{resolver.VarTemplateID: "tpl1"}),
				resolver.ConfigFile(map[string]string{"public_key": "pub1"}),
			},
			wantFound:      3,
			wantMissing:    []string{},
			wantConfigured: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHarness(resolver.NewEnvironmentStrategy(tt.lookups...), &MockFacade{}, nil, template.NewDefaultBuilder(time.UTC), nil)
			report := h.CheckEnvironment()
			assert.Equal(t, tt.wantConfigured, report.Configured)
			assert.Equal(t, tt.wantFound, report.RequiredFound)
			assert.Equal(t, tt.wantMissing, report.Missing)
			assert.Len(t, report.Sources, tt.wantFound)

			// idempotent
			assert.Equal(t, report, h.CheckEnvironment())
		})
	}
}

func TestCheckEnvironment_SourcesNameMechanism(t *testing.T) {
	h := NewHarness(resolver.NewEnvironmentStrategy(
		resolver.StaticLookup(resolver.MechanismDotEnv, map[string]string{resolver.VarServiceID: "svc1"}),
	), nil, nil, template.NewDefaultBuilder(time.UTC), nil)

	report := h.CheckEnvironment()
	assert.Equal(t, resolver.MechanismDotEnv, report.Sources[resolver.VarServiceID])
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name      string
		facade    *MockFacade
		dir       AdminDirectory
		wantReady bool
		wantCount int
		wantMsg   string
	}{
		{
			name:    "unconfigured",
			facade:  &MockFacade{},
			dir:     admins("admin@test.com"),
			wantMsg: "not configured",
		},
		{
			name:    "no admins",
			facade:  &MockFacade{configured: true},
			dir:     admins(),
			wantMsg: "No administrator",
		},
		{
			name:   "directory down",
			facade: &MockFacade{configured: true},
			dir: &MockDirectory{AdminEmailsFunc: func(context.Context) ([]string, error) {
				return nil, errors.New("connection refused")
			}},
			wantMsg: "unavailable",
		},
		{
			name:      "ready",
			facade:    &MockFacade{configured: true},
			dir:       admins("admin@test.com", "ops@test.com"),
			wantReady: true,
			wantCount: 2,
			wantMsg:   "2 administrator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := newHarness(t, tt.facade, tt.dir).CheckReadiness(context.Background())
			assert.Equal(t, tt.wantReady, report.Ready)
			assert.Equal(t, tt.wantCount, report.AdminEmailCount)
			assert.Contains(t, report.Message, tt.wantMsg)
			assert.Empty(t, tt.facade.tested)
		})
	}
}

func TestRunFullFlow_UsesFirstAdminByDefault(t *testing.T) {
	facade := &MockFacade{configured: true}
	h := newHarness(t, facade, admins("admin@test.com", "ops@test.com"))

	report := h.RunFullFlow(context.Background(), "")

	assert.True(t, report.Success)
	for _, step := range flowSteps {
		assert.True(t, report.Steps[step], step)
	}
	assert.Equal(t, []string{"admin@test.com"}, facade.tested)
}

func TestRunFullFlow_ExplicitAddress(t *testing.T) {
	facade := &MockFacade{configured: true}
	h := newHarness(t, facade, admins())

	report := h.RunFullFlow(context.Background(), " qa@test.com ")

	assert.True(t, report.Success)
	assert.False(t, report.Steps[StepAdminEmailsLoaded])
	assert.True(t, report.Steps[StepTestDispatched])
	assert.Equal(t, []string{"qa@test.com"}, facade.tested)
}

func TestRunFullFlow_Failures(t *testing.T) {
	t.Run("unconfigured stops at first step", func(t *testing.T) {
		facade := &MockFacade{}
		report := newHarness(t, facade, admins("admin@test.com")).RunFullFlow(context.Background(), "")
		assert.False(t, report.Success)
		require.Len(t, report.Steps, len(flowSteps))
		for _, step := range flowSteps {
			assert.False(t, report.Steps[step], step)
		}
		assert.Empty(t, facade.tested)
	})

	t.Run("no address available", func(t *testing.T) {
		facade := &MockFacade{configured: true}
		report := newHarness(t, facade, admins()).RunFullFlow(context.Background(), "")
		assert.False(t, report.Success)
		assert.True(t, report.Steps[StepConfigured])
		assert.False(t, report.Steps[StepContentBuilt])
		assert.Empty(t, facade.tested)
	})

	t.Run("dispatch rejected", func(t *testing.T) {
		facade := &MockFacade{
			configured: true,
			TestFunc: func(context.Context, string) service.TestResult {
				return service.TestResult{Message: "Test notification to admin@test.com failed: TRANSPORT_REJECTED"}
			},
		}
		report := newHarness(t, facade, admins("admin@test.com")).RunFullFlow(context.Background(), "")
		assert.False(t, report.Success)
		assert.True(t, report.Steps[StepContentBuilt])
		assert.False(t, report.Steps[StepTestDispatched])
		assert.Contains(t, report.Message, "TRANSPORT_REJECTED")
	})
}
