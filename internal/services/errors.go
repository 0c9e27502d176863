// Package services implements the two pipeline orchestrators: import
// (WXR records into durable posts/categories) and categorization
// (AI enrichment of posts lacking categories). This file centralizes
// the service-level error values so they can be consistently returned
// by service methods and checked by callers.
package services

import "errors"

var (
	// ErrNoClassifier is returned when a categorization run is started
	// without a configured classifier.
	ErrNoClassifier = errors.New("no classifier configured")

	// ErrNoDatabase is returned when a service is used without a
	// database handle.
	ErrNoDatabase = errors.New("no database handle configured")
)
