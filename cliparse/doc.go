// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

An optional .env file is loaded first; variables already set in the
environment are left alone.

# CLI Flags and Environment Variables

	-p           PORT                (default 3318)
	-d           DATABASE_URL        (required)
	-t           DATABASE_TYPE       sqlite | postgres (default sqlite)
	-provider    LLM_PROVIDER        openai | gemini (default openai)
	-model       LLM_MODEL
	-api-key     OPENAI_API_KEY / GEMINI_API_KEY (required)
	-call-limit  API_CALL_LIMIT      (default 50)
	-step-delay  STEP_DELAY          (default 1s)
	             OPENAI_BASE_URL / GEMINI_BASE_URL
	             STRICT_CARDINALITY  (default false)
	             BROADCAST_ALL       (default false)
	             REQUESTS_PER_MINUTE (default 0, disabled)

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if the database URL or the selected
provider's API key is missing, or if a value does not parse.
*/
package cliparse
