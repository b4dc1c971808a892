// Package models defines the catalog-neutral types that flow between the source reader, the destination
// adapter, the reconciliation engine and the presentation layer.
//
//   - [Playlist] : a source playlist reference, including the synthetic liked-songs entry
//   - [Track] : a source track with its ordered artist list
//   - [DestinationTrack] : a search hit or playlist entry in the destination catalog
//   - [User] : the authenticated source account, used for the ownership filter
//   - [RunSummary] : counters and failed tracks aggregated over one migration run
package models
