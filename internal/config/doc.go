// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

// Package config provides layered configuration loading for Parallel
// using Koanf v2: built-in defaults, then an optional YAML file, then
// environment variables (highest priority).
package config
