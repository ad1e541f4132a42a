// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package codec encodes and decodes SOAP packets on the wire.

Four codecs share the [Codec] interface:

  - [XMLCodec] writes a plain XML envelope (text/xml or application/soap+xml).
  - [MTOMCodec] writes a multipart/related XOP package. Binary values at or
    above the configured threshold are moved into separate MIME parts and
    referenced with xop:Include.
  - [SwACodec] frames a root codec's output followed by the message's
    attachments (SOAP with Attachments).
  - [FastInfosetCodec] wraps an optional [FastInfosetProvider]. Without a
    provider it is unavailable and negotiation falls back to XML.

[NegotiatingCodec] picks one of them per exchange:

	c := codec.NewNegotiatingCodec(codec.Config{
	    Version: message.SOAP12,
	    MTOM:    &message.MTOMFeature{Enabled: true, Threshold: 1024},
	})

	ct, err := c.Encode(packet, w)
	req.Header.Set("Content-Type", ct.String())

A codec instance carries negotiation state and must not be shared between
concurrent exchanges. Use [Codec.Copy] to obtain one per exchange.

# Errors

Decode and encode failures are returned as [*ExchangeError]. Use errors.Is
with [ErrFraming], [ErrUnsupportedMedia], [ErrUnsupportedOperation] or
[ErrAttachmentNotFound] to classify them.

# References

  - MTOM: https://www.w3.org/TR/soap12-mtom/
  - XOP: https://www.w3.org/TR/xop10/
  - SOAP with Attachments: https://www.w3.org/TR/SOAP-attachments
*/
package codec
