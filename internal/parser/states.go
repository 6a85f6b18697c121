package parser

type parserState uint8

const (
	eMessageBegin parserState = iota
	eMethod
	eURLStart
	eURL
	eProto
	eProtoLF
	eHeaderStart
	eHeaderField
	eHeaderValueStart
	eHeaderValue
	eHeaderValueLF
	eHeadersLF
	eBody
	eChunkedBody
)
