// Package biz implements the ingestion and query pipelines: chunking,
// indexing, filtered retrieval, grounded answering and batch ingestion.
package biz
