// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package mime handles MIME multipart/related framing for MTOM and SwA messages.

# MIME Structure

Messages with attachments use multipart/related:

	Content-Type: multipart/related;
	    start="<rootpart*7d3c...@mtom.siros.org>";
	    type="application/xop+xml";
	    boundary="uuid:7d3c..."

	--uuid:7d3c...
	Content-Id: <rootpart*7d3c...@mtom.siros.org>
	Content-Type: application/xop+xml;charset=utf-8;type="text/xml"
	Content-Transfer-Encoding: binary

	[SOAP Envelope]
	--uuid:7d3c...
	Content-Id: <0f1e...@mtom.siros.org>
	Content-Type: application/octet-stream
	Content-Transfer-Encoding: binary

	[Binary payload data]
	--uuid:7d3c...--

# Parsing

A [Parser] reads the stream lazily. The root part is located on the first
call to [Parser.RootPart]; attachments are only read when they are asked for:

	parser, err := mime.NewParser(body, ct)
	root, err := parser.RootPart()
	att, err := parser.AttachmentPart("payload-1@example.com")

Parts the stream has to move past are spooled into memory so they can still
be served later. A part that is consumed in place, for example with
[Part.WriteTo], is never buffered.

# Writing

[WriteBoundary], [WritePartHeaders], [WritePartEnd] and [WriteClose] emit the
frame exactly as shown above.

# Content IDs

Content-IDs are stored without angle brackets and restored when written:

	cid:payload-1

# References

  - SOAP with Attachments: https://www.w3.org/TR/SOAP-attachments
  - MIME Multipart: https://datatracker.ietf.org/doc/html/rfc2046
  - XOP: https://www.w3.org/TR/xop10/
*/
package mime
