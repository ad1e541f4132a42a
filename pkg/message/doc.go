// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package message provides SOAP envelopes and the packets codecs exchange.

A Message wraps an etree document. Elements can carry binary content through
SetBinary, which codecs write either as base64 text or as an XOP include.
Decoded messages keep their attachment set and the binary values resolved
from xop:Include references.

# Building Messages

	payload := etree.NewElement("m:echo")
	payload.CreateAttr("xmlns:m", "urn:example")
	payload.CreateElement("m:text").SetText("hello")

	msg := message.NewEnvelope(message.SOAP11, payload)
	p := message.NewPacket(msg)
	p.SOAPAction = "urn:example:echo"

# Packets

A Packet holds the per exchange state: SOAPAction, Accept, the content type
last written or read, the MTOM feature and the Fast Infoset negotiation mode.

# Namespaces

	SOAP 1.1: http://schemas.xmlsoap.org/soap/envelope/
	SOAP 1.2: http://www.w3.org/2003/05/soap-envelope
*/
package message
