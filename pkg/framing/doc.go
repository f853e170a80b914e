// Package framing implements the addressed bus wire format.
//
// A frame is a 4-byte big-endian header followed by the payload:
//
//	[addrHi][addrLo][lenHi][lenLo][payload...]
//
// Every stream on the bus shares this format. A Framer decodes one byte at a
// time and only surfaces frames whose destination equals its own address;
// frames for other addresses are consumed and discarded so the decoder stays
// aligned on the next header.
package framing
