// Package config provides configuration parsing for the storefront.
//
// The configuration is stored in storefront.json at the project root and
// may be overridden by STOREFRONT_* environment variables. Secrets are only
// read from the environment.
//
// # Configuration File Structure
//
//	{
//	  "navigation": {
//	    "loginPath": "/",
//	    "errorRoute": "/error",
//	    "maxRedirects": 16,
//	    "loadAttempts": 2,
//	    "loadRetryDelay": "250ms"
//	  },
//	  "routes": {
//	    "file": "routes.yaml",
//	    "lazyRegister": true
//	  },
//	  "loader": {
//	    "bucket": "storefront-views",
//	    "prefix": "bundles/",
//	    "region": "eu-west-1"
//	  },
//	  "server": {
//	    "host": "0.0.0.0",
//	    "port": 8080,
//	    "metricsPath": "/metrics"
//	  },
//	  "session": {
//	    "issuer": "storefront",
//	    "ttl": "12h"
//	  },
//	  "telemetry": {
//	    "otlpEndpoint": "otel-collector:4318",
//	    "sampleRatio": 0.1
//	  }
//	}
//
// # Environment
//
//	STOREFRONT_SERVER_PORT=9000
//	STOREFRONT_SESSION_JWT_SECRET=...
//	STOREFRONT_LOADER_ACCESS_KEY_ID=...
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
