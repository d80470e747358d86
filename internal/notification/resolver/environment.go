package resolver

import (
	"context"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"intake-notifications/internal/models"
)

// Environment variables read by the environment strategy.
const (
	VarServiceID  = "EMAILJS_SERVICE_ID"
	VarTemplateID = "EMAILJS_TEMPLATE_ID"
	VarPublicKey  = "EMAILJS_PUBLIC_KEY"
	VarPrivateKey = "EMAILJS_PRIVATE_KEY"
	VarFromName   = "EMAILJS_FROM_NAME"
	VarFromEmail  = "EMAILJS_FROM_EMAIL"
)

// RequiredVars are the variables that must be found for the environment to count as configured.
var RequiredVars = []string{VarServiceID, VarTemplateID, VarPublicKey}

// AllVars lists every variable in reporting order.
var AllVars = []string{VarServiceID, VarTemplateID, VarPublicKey, VarPrivateKey, VarFromName, VarFromEmail}

// Access mechanism names.
const (
	MechanismProcessEnv = "process_env"
	MechanismDotEnv     = "dotenv"
	MechanismConfigFile = "config_file"
)

// Lookup is one way of reading a named variable.
type Lookup interface {
	Name() string
	Lookup(key string) (string, bool)
}

type processEnvLookup struct{}

// ProcessEnv reads the process environment.
func ProcessEnv() Lookup { return processEnvLookup{} }

func (processEnvLookup) Name() string { return MechanismProcessEnv }

func (processEnvLookup) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

type mapLookup struct {
	name   string
	values map[string]string
}

func (m mapLookup) Name() string { return m.name }

func (m mapLookup) Lookup(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// DotEnvFile reads variables from a .env file without touching the process
// environment. A missing or unreadable file yields an empty lookup.
func DotEnvFile(path string) Lookup {
	values := map[string]string{}
	if path != "" {
		if read, err := godotenv.Read(path); err == nil {
			values = read
		}
	}
	return mapLookup{name: MechanismDotEnv, values: values}
}

// ConfigFile maps the notifications.relay section of the config file onto
// the variable names. Keys follow the YAML names (service_id, template_id, ...).
func ConfigFile(relay map[string]string) Lookup {
	return mapLookup{name: MechanismConfigFile, values: map[string]string{
		VarServiceID:  relay["service_id"],
		VarTemplateID: relay["template_id"],
		VarPublicKey:  relay["public_key"],
		VarPrivateKey: relay["private_key"],
		VarFromName:   relay["from_name"],
		VarFromEmail:  relay["from_email"],
	}}
}

// StaticLookup is a named in-memory lookup.
func StaticLookup(name string, values map[string]string) Lookup {
	return mapLookup{name: name, values: values}
}

// IsSentinel reports whether v is an unset marker or template placeholder
// rather than a real value.
func IsSentinel(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	switch s {
	case "", "undefined", "null", "none", "changeme":
		return true
	}
	return strings.HasPrefix(s, "your_") || strings.HasPrefix(s, "<")
}

// EnvSnapshot is the result of probing every variable through every mechanism.
type EnvSnapshot struct {
	Values  map[string]string
	Sources map[string]string
}

// Found reports whether a usable value was found for name.
func (s EnvSnapshot) Found(name string) bool {
	_, ok := s.Values[name]
	return ok
}

// EnvironmentStrategy reads the fixed variable set, trying each lookup in order per variable.
type EnvironmentStrategy struct {
	lookups []Lookup
}

func NewEnvironmentStrategy(lookups ...Lookup) *EnvironmentStrategy {
	return &EnvironmentStrategy{lookups: lookups}
}

func (e *EnvironmentStrategy) Name() string { return SourceEnvironment }

// Inspect checks every variable and records which mechanism supplied it.
func (e *EnvironmentStrategy) Inspect() EnvSnapshot {
	snap := EnvSnapshot{Values: map[string]string{}, Sources: map[string]string{}}
	for _, name := range AllVars {
		for _, l := range e.lookups {
			v, ok := l.Lookup(name)
			if !ok || IsSentinel(v) {
				continue
			}
			snap.Values[name] = strings.TrimSpace(v)
			snap.Sources[name] = l.Name()
			break
		}
	}
	return snap
}

func (e *EnvironmentStrategy) Resolve(_ context.Context) (*models.NotificationConfig, error) {
	snap := e.Inspect()
	if len(snap.Values) == 0 {
		return nil, nil
	}
	return &models.NotificationConfig{
		ServiceID:  snap.Values[VarServiceID],
		TemplateID: snap.Values[VarTemplateID],
		PublicKey:  snap.Values[VarPublicKey],
		PrivateKey: snap.Values[VarPrivateKey],
		FromName:   snap.Values[VarFromName],
		FromEmail:  snap.Values[VarFromEmail],
	}, nil
}
