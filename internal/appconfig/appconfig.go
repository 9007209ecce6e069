// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"strings"
	"time"

	"github.com/ChenJellay/helix/internal/apperr"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// defaultRequestTimeout is the default timeout for HTTP requests.
	defaultRequestTimeout = 120 * time.Second
	// DefaultDocumentCollection holds embedded document chunks.
	DefaultDocumentCollection = "helix_documents"
	// DefaultRepoMapCollection holds repository summary blobs keyed by repo URL.
	DefaultRepoMapCollection = "helix_repo_maps"
)

// Config represents the top-level application configuration.
type Config struct {
	Hosts          []Host `json:"hosts" mapstructure:"hosts"`
	Model          string `json:"model" mapstructure:"model"`
	EmbeddingHost  string `json:"embeddingHost" mapstructure:"embeddingHost"`
	EmbeddingModel string `json:"embeddingModel" mapstructure:"embeddingModel"`
	Vector         Vector `json:"vector" mapstructure:"vector"`
	GraphPath      string `json:"graphPath,omitempty" mapstructure:"graphPath"`
	TimeoutSeconds int    `json:"timeout,omitempty" mapstructure:"timeout"`
	LogFile        string `json:"logFile,omitempty" mapstructure:"logFile"`
	Debug          bool   `json:"debug" mapstructure:"debug"`
	ConfigPath     string `json:"-" mapstructure:"-"`
}

// Host represents a single endpoint that can serve language models.
// Type selects the wire dialect: "ollama" or "openai".
type Host struct {
	Name string `json:"name" mapstructure:"name"`
	URL  string `json:"url" mapstructure:"url"`
	Type string `json:"type" mapstructure:"type"`
}

// Vector configures the vector store backend. An empty URL selects the
// in-process memory store.
type Vector struct {
	URL               string `json:"url,omitempty" mapstructure:"url"`
	APIKey            string `json:"apiKey,omitempty" mapstructure:"apiKey"`
	Collection        string `json:"collection,omitempty" mapstructure:"collection"`
	RepoMapCollection string `json:"repoMapCollection,omitempty" mapstructure:"repoMapCollection"`
	Dimension         int    `json:"dimension,omitempty" mapstructure:"dimension"`
}

// RequestTimeout returns the timeout duration for HTTP requests, falling back
// to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "helix.log"
}

// GraphStorePath returns the SQLite path for the entity graph.
func (c Config) GraphStorePath() string {
	if strings.TrimSpace(c.GraphPath) != "" {
		return c.GraphPath
	}
	return "helix_graph.db"
}

// DocumentCollection returns the vector collection name for document chunks.
func (c Config) DocumentCollection() string {
	if strings.TrimSpace(c.Vector.Collection) != "" {
		return c.Vector.Collection
	}
	return DefaultDocumentCollection
}

// RepoMapCollection returns the vector collection name for repository summaries.
func (c Config) RepoMapCollection() string {
	if strings.TrimSpace(c.Vector.RepoMapCollection) != "" {
		return c.Vector.RepoMapCollection
	}
	return DefaultRepoMapCollection
}

// HostByName returns the named host entry.
func (c Config) HostByName(name string) (Host, error) {
	for _, host := range c.Hosts {
		if host.Name == name {
			return host, nil
		}
	}
	return Host{}, apperr.Configf("host %q not found in config hosts", name)
}

// ModelHost returns the host serving the completion model. With a single
// configured host it is used for both completion and embedding.
func (c Config) ModelHost() (Host, error) {
	if len(c.Hosts) == 0 {
		return Host{}, apperr.Configf("config must contain at least one host")
	}
	return c.Hosts[0], nil
}

// EmbeddingEndpoint returns the host used for embedding requests, defaulting
// to the model host when embeddingHost is unset.
func (c Config) EmbeddingEndpoint() (Host, error) {
	if strings.TrimSpace(c.EmbeddingHost) == "" {
		return c.ModelHost()
	}
	return c.HostByName(c.EmbeddingHost)
}

// Validate checks the invariants a loaded configuration must satisfy.
func (c Config) Validate() error {
	if len(c.Hosts) == 0 {
		return apperr.Configf("config must contain at least one host")
	}
	for _, host := range c.Hosts {
		if strings.TrimSpace(host.URL) == "" {
			return apperr.Configf("host %q has no url", host.Name)
		}
		switch host.Type {
		case "ollama", "openai":
		default:
			return apperr.Configf("host %q has unknown type %q (want ollama or openai)", host.Name, host.Type)
		}
	}
	if strings.TrimSpace(c.Model) == "" {
		return apperr.Configf("model is required")
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		return apperr.Configf("embeddingModel is required")
	}
	if c.EmbeddingHost != "" {
		if _, err := c.HostByName(c.EmbeddingHost); err != nil {
			return err
		}
	}
	return nil
}
