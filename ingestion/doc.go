// Package ingestion builds the retrieval index from documents.
//
// The Pipeline type loads files, URLs, and raw text, splits the content
// into chunks, embeds each chunk, and upserts the result into the chunk
// repository. The Watcher type feeds the pipeline automatically from
// watched directories.
//
// Chunk IDs derive from chunk content, so re-ingesting unchanged material
// updates in place instead of duplicating.
package ingestion
