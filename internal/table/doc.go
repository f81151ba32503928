// Package table is the shared state service: it owns the draw pile and the
// discard board and serializes every mutation behind a per-structure guard.
//
// ARCHITECTURE:
//
// The server process creates exactly one Table. Client processes reach it
// through Client, which speaks to Handler over HTTP; both Table and Client
// expose Draw and Top with identical signatures so session code runs against
// either one.
//
// GUARDS:
//
// Each structure has a guard, a one-slot channel that is acquired with a
// context and released with defer. Draw and AppendPile hold only the pile
// guard; Top and AppendBoard hold only the board guard. Adjudicate is the one
// operation that holds both, always pile first, for the duration of a single
// stacking decision.
//
// CONSERVATION:
//
// Cards only move between the pile, the board and player hands. The table never
// creates or discards a card, so |pile| + |board| + hands stays equal to the
// deck size.
package table
