// Package census holds the pieces shared by every entity type: the Executor
// contract, response envelopes, the payload Decoder and the identity layer.
//
// # Envelopes
//
// A query response is shaped as
//
//	{"character_list": [{...}, {...}], "returned": 2}
//
// and a count response as {"count": "42"}. Census quotes most numbers and
// spells null as "NULL"; the Decoder accepts both.
//
// # Construction
//
// Construct reads the id field, hands a Decoder to the Kind's Build method
// and reports unconsumed keys to an Observer:
//
//	char, err := census.Construct(kind, payload, exec, census.ConstructOptions{
//		Observer: census.LogObserver(logger),
//	})
//
// Errors use go-errors: malformed payloads carry the PAYLOAD_ERROR text code
// (see IsPayloadError), transport errors from an Executor pass through as is.
package census
