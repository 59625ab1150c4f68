// Package id provides 128-bit, lexicographically sortable identifiers used
// as archive catalog keys.
//
// An ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence], so
// byte order is retirement order. The Generator never goes backwards: on
// clock regression it pins to the last millisecond and bumps the sequence.
//
//	g := id.NewGenerator()
//	k := g.Next()
//	s := k.String()      // 32 hex chars
//	back, _ := id.Parse(s)
package id
