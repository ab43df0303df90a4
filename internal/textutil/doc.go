// Package textutil reduces and reshapes text for publishing: HTML to plain
// text, first-image extraction, rune-safe truncation, hashtag handling, and
// token fingerprints used to spot the same article arriving from two feeds.
//
// Fingerprints are term frequency vectors. Tokenization lowercases text,
// splits on non-alphanumeric characters, and drops tokens shorter than 3
// characters.
package textutil
