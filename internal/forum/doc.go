// Package forum implements the discussion board: posts with threaded replies.
//
// Listing returns posts with a reply count; fetching a single post returns
// its replies oldest first.
package forum
