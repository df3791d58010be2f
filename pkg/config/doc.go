// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings. The admin allow-list is the one file-based
// piece of configuration: it is injected as a YAML file and hot-reloaded so admin
// grants take effect without a restart.
//
// # Configuration Structure
//
// Server settings:
//
//	WISHTREE_HOST="0.0.0.0"
//	WISHTREE_PORT="8080"
//	WISHTREE_HEALTH_PORT="9090"
//	WISHTREE_READ_TIMEOUT="15s"
//	WISHTREE_WRITE_TIMEOUT="15s"
//
// Storage settings:
//
//	WISHTREE_STORAGE_TYPE="postgres"  # memory, postgres
//	WISHTREE_POSTGRES_URL="postgres://localhost/wishtree"
//	WISHTREE_POSTGRES_MAX_CONNS="20"
//	WISHTREE_REDIS_URL="redis://localhost:6379"
//
// Auth settings:
//
//	WISHTREE_OIDC_ISSUER_URL="https://securetoken.google.com/my-project"
//	WISHTREE_OIDC_CLIENT_ID="my-project"
//	WISHTREE_AUTH_OPTIONAL="true"  # guests may view public trees
//
// Permission engine settings:
//
//	WISHTREE_ADMIN_LIST_PATH="/etc/wishtree/admins.yaml"
//	WISHTREE_PERM_CHECK_TIMEOUT="3s"
//
// Observability settings:
//
//	WISHTREE_LOG_LEVEL="info"  # debug, info, warn, error
//	WISHTREE_METRICS_ENABLED="true"
//	WISHTREE_OTEL_ENABLED="false"
//	WISHTREE_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Related Packages
//
//   - pkg/store: Uses storage configuration
//   - pkg/perm: Uses the admin allow-list and check timeout
//   - pkg/observability: Uses observability configuration
package config
