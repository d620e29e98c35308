// Package sift turns unstructured web pages into schema-conformant records.
// It fetches pages, splits their content into bounded chunks, asks a
// language model to extract records from each chunk, validates them against
// a schema, appends them to per-target record stores, and reconciles
// duplicates in a separate deduplication pass.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, gemini/, rod/).
package sift
