package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// Supported publisher types.
	TypeQueue = "queue"
	TypeHTTP  = "http"

	// Supported queue providers.
	QueueProviderAWSSQS = "aws-sqs"
	QueueProviderAWSSNS = "aws-sns"
	QueueProviderGCP    = "gcp"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// configFile represents the structure of the publishers configuration file.
type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig is one sink that receives analysis events.
type PublisherConfig struct {
	ID      string                `json:"id" yaml:"id" validate:"required"`
	Type    string                `json:"type" yaml:"type" validate:"required,oneof=queue http"`
	Enabled *bool                 `json:"enabled" yaml:"enabled"`
	Events  []string              `json:"events" yaml:"events"`
	Queue   *QueuePublisherConfig `json:"queue" yaml:"queue" validate:"required_if=Type queue"`
	HTTP    *HTTPPublisherConfig  `json:"http" yaml:"http" validate:"required_if=Type http"`
}

// QueuePublisherConfig selects a cloud queue provider.
type QueuePublisherConfig struct {
	Provider string                 `json:"provider" yaml:"provider" validate:"required,oneof=aws-sqs aws-sns gcp"`
	AWS      *AWSSQSPublisherConfig `json:"aws" yaml:"aws" validate:"required_if=Provider aws-sqs"`
	SNS      *AWSSNSPublisherConfig `json:"sns" yaml:"sns" validate:"required_if=Provider aws-sns"`
	GCP      *GCPQueueConfig        `json:"gcp" yaml:"gcp" validate:"required_if=Provider gcp"`
}

// AWSSQSPublisherConfig holds AWS SQS specific settings.
type AWSSQSPublisherConfig struct {
	QueueURL        string `json:"uri" yaml:"uri" validate:"required,url"`
	Region          string `json:"region" yaml:"region" validate:"required"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id" validate:"required"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key" validate:"required"`
}

// AWSSNSPublisherConfig holds AWS SNS specific settings.
type AWSSNSPublisherConfig struct {
	TopicARN        string `json:"topic_arn" yaml:"topic_arn" validate:"required"`
	Region          string `json:"region" yaml:"region" validate:"required"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id" validate:"required"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key" validate:"required"`
}

// GCPQueueConfig holds the minimal Pub/Sub topic settings.
type GCPQueueConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id" validate:"required"`
	Topic           string `json:"topic" yaml:"topic" validate:"required"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPPublisherConfig holds webhook sink settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url" validate:"required,url"`
	Method         string            `json:"method" yaml:"method" validate:"oneof=POST PUT PATCH"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ConfigRegistry holds the publisher definitions loaded from a file.
type ConfigRegistry struct {
	mu         sync.RWMutex
	publishers []PublisherConfig
	idx        map[string]PublisherConfig
}

// LoadRegistry loads the publisher registry from a YAML or JSON file.
// ${VAR} references are expanded from the environment before decoding.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	file, err := decodeConfigFile([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewConfigRegistry(file.Publishers)
}

// NewConfigRegistry validates cfgs and indexes them by id.
func NewConfigRegistry(cfgs []PublisherConfig) (*ConfigRegistry, error) {
	if len(cfgs) == 0 {
		return nil, errors.New("no publishers configured")
	}

	reg := &ConfigRegistry{
		publishers: make([]PublisherConfig, 0, len(cfgs)),
		idx:        make(map[string]PublisherConfig, len(cfgs)),
	}
	for i, c := range cfgs {
		cfg := sanitizePublisherConfig(c)
		if err := validatePublisherConfig(cfg); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, exists := reg.idx[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.publishers = append(reg.publishers, cfg)
		reg.idx[cfg.ID] = cfg
	}
	return reg, nil
}

// decodeConfigFile picks the decoder by extension; without one it tries
// YAML, which also accepts JSON documents.
func decodeConfigFile(data []byte, ext string) (configFile, error) {
	var file configFile
	switch strings.ToLower(strings.TrimSpace(ext)) {
	case ".json":
		if err := json.Unmarshal(data, &file); err != nil {
			return configFile{}, fmt.Errorf("decode json publishers: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return configFile{}, fmt.Errorf("decode yaml publishers: %w", err)
		}
	default:
		return configFile{}, fmt.Errorf("publishers file format %q not recognized (expected YAML or JSON)", ext)
	}
	return file, nil
}

// sanitizePublisherConfig trims and normalizes the publisher config fields.
func sanitizePublisherConfig(cfg PublisherConfig) PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	cfg.Events = trimAll(cfg.Events)

	if cfg.Enabled == nil {
		def := true
		cfg.Enabled = &def
	}
	if cfg.Queue != nil {
		qc := *cfg.Queue
		qc.Provider = strings.ToLower(strings.TrimSpace(qc.Provider))
		if qc.AWS != nil {
			a := *qc.AWS
			trimFields(&a.QueueURL, &a.Region, &a.AccessKeyID, &a.SecretAccessKey)
			qc.AWS = &a
		}
		if qc.SNS != nil {
			s := *qc.SNS
			trimFields(&s.TopicARN, &s.Region, &s.AccessKeyID, &s.SecretAccessKey)
			qc.SNS = &s
		}
		if qc.GCP != nil {
			g := *qc.GCP
			trimFields(&g.ProjectID, &g.Topic, &g.CredentialsFile)
			qc.GCP = &g
		}
		cfg.Queue = &qc
	}
	if cfg.HTTP != nil {
		c := *cfg.HTTP
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = httpDefaultMethod
		}
		c.Headers = sanitizeHeaders(c.Headers)
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		cfg.HTTP = &c
	}

	return cfg
}

func trimFields(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// sanitizeHeaders trims and removes empty headers.
func sanitizeHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// validatePublisherConfig runs the struct rules and renders the first
// failure with its config path.
func validatePublisherConfig(cfg PublisherConfig) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "PublisherConfig.")
	if fe.Param() != "" {
		return fmt.Errorf("publisher %q: %s failed %s=%s (got %q)", cfg.ID, field, fe.Tag(), fe.Param(), fmt.Sprint(fe.Value()))
	}
	return fmt.Errorf("publisher %q: %s is %s", cfg.ID, field, fe.Tag())
}

// ByID returns the publisher config by id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return PublisherConfig{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.idx[id]
	return cfg, ok
}

// All returns all configured publishers.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PublisherConfig, len(r.publishers))
	copy(out, r.publishers)
	return out
}

// Enabled returns publishers that are enabled.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	all := r.All()
	out := make([]PublisherConfig, 0, len(all))
	for _, cfg := range all {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue returns enabled flag defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}

// Accepts reports whether the publisher subscribes to eventType. An empty
// Events list subscribes to everything.
func (cfg PublisherConfig) Accepts(eventType string) bool {
	if len(cfg.Events) == 0 {
		return true
	}
	for _, e := range cfg.Events {
		if e == eventType || e == "*" {
			return true
		}
	}
	return false
}
