package config

// ConfigDiff describes what changed between two configs. Only fields safe to
// apply without restarting the process are tracked — storage, graph, and
// HNSW layout knobs are fixed at Open time and excluded.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	SecurityChanged bool
	NewSecurity     SecurityConfig

	CollaboratorsChanged   bool
	LLMCollaboratorChanged bool
	EmbeddingsChanged      bool
	NewCollaborators       CollaboratorsConfig
}

// Diff compares old and new configs and returns what changed. Only tracks
// changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}

	if old.Security != new.Security {
		d.SecurityChanged = true
		d.NewSecurity = new.Security
	}

	if old.Collaborators.LLM != new.Collaborators.LLM {
		d.LLMCollaboratorChanged = true
	}
	if old.Collaborators.Embeddings != new.Collaborators.Embeddings {
		d.EmbeddingsChanged = true
	}
	if d.LLMCollaboratorChanged || d.EmbeddingsChanged {
		d.CollaboratorsChanged = true
		d.NewCollaborators = new.Collaborators
	}

	return d
}
