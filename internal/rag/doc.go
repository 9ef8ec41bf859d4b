// Package rag holds the types and error conditions shared by the
// document retrieval-and-chat pipeline: passages produced by the chunker,
// and the typed failures every stage reports.
package rag
