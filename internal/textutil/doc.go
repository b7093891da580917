// Package textutil provides small text helpers shared by label extraction and
// document naming.
//
// Words tokenizes transcripts without lowercasing them so capitalization can
// be inspected; LabelSlug produces safe object names.
package textutil
