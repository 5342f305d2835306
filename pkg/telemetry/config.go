// Package telemetry wires OpenTelemetry tracing for discovery runs.
package telemetry

import (
	"os"
	"strings"
)

// Config holds the tracing settings. They are read from the standard
// OTEL_* environment variables:
//
//	OTEL_ENABLED                 enable tracing (default false)
//	OTEL_SERVICE_NAME            service name (default depdiscover)
//	OTEL_SERVICE_VERSION         service version (default unknown)
//	OTEL_EXPORTER_OTLP_ENDPOINT  collector endpoint, scheme optional
//	OTEL_EXPORTER_OTLP_PROTOCOL  grpc or http/protobuf (default grpc)
//	OTEL_EXPORTER_OTLP_HEADERS   k=v,k=v headers sent to the collector
//	OTEL_EXPORTER_OTLP_INSECURE  disable TLS
//	OTEL_TRACES_SAMPLER          sampler name (default always_on)
//	OTEL_TRACES_SAMPLER_ARG      sampler ratio
//	OTEL_RESOURCE_ATTRIBUTES     k=v,k=v resource attributes
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Protocol       string
	Headers        map[string]string
	Insecure       bool
	Sampler        string
	SamplerArg     string
	ResourceAttrs  map[string]string
}

// LoadFromEnv reads the configuration from the process environment.
func LoadFromEnv() *Config {
	return loadFrom(os.Getenv)
}

func loadFrom(getenv func(string) string) *Config {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	return &Config{
		Enabled:        isTrue(getenv("OTEL_ENABLED")),
		ServiceName:    get("OTEL_SERVICE_NAME", "depdiscover"),
		ServiceVersion: get("OTEL_SERVICE_VERSION", "unknown"),
		Endpoint:       get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Protocol:       strings.ToLower(get("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
		Headers:        parseKeyValuePairs(getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Insecure:       isTrue(getenv("OTEL_EXPORTER_OTLP_INSECURE")),
		Sampler:        strings.ToLower(get("OTEL_TRACES_SAMPLER", "")),
		SamplerArg:     get("OTEL_TRACES_SAMPLER_ARG", ""),
		ResourceAttrs:  parseKeyValuePairs(getenv("OTEL_RESOURCE_ATTRIBUTES")),
	}
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// parseKeyValuePairs parses "k1=v1,k2=v2". Values may contain '='; pairs
// without a key are skipped.
func parseKeyValuePairs(s string) map[string]string {
	result := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		result[key] = strings.TrimSpace(value)
	}
	return result
}
