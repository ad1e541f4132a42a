// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package gomtom implements the SOAP message encodings used on the wire by
web service stacks: plain XML, MTOM/XOP, SOAP with Attachments and an
optional Fast Infoset slot, together with the content negotiation that picks
between them for every exchange.

# Specifications Implemented

  - SOAP Message Transmission Optimization Mechanism: https://www.w3.org/TR/soap12-mtom/
  - XML-binary Optimized Packaging (XOP): https://www.w3.org/TR/xop10/
  - SOAP Messages with Attachments: https://www.w3.org/TR/SOAP-attachments
  - MIME multipart/related (RFC 2387): https://datatracker.ietf.org/doc/html/rfc2387
  - Content-ID URLs (RFC 2392): https://datatracker.ietf.org/doc/html/rfc2392

# Package Structure

	github.com/sirosfoundation/go-mtom/pkg/codec       - XML, MTOM, SwA, Fast Infoset and negotiating codecs
	github.com/sirosfoundation/go-mtom/pkg/mime        - Streaming multipart/related parser and part framing
	github.com/sirosfoundation/go-mtom/pkg/attachment  - Attachments, attachment sets and data handlers
	github.com/sirosfoundation/go-mtom/pkg/contenttype - Content-Type header parsing and rendering
	github.com/sirosfoundation/go-mtom/pkg/message     - SOAP envelopes, packets and features
	github.com/sirosfoundation/go-mtom/pkg/xmlstream   - Pull reader and writer with binary text support
	github.com/sirosfoundation/go-mtom/pkg/transport   - HTTP(S) client and handler
	github.com/sirosfoundation/go-mtom/pkg/compression - GZIP content encoding

# Quick Start

To call an endpoint with MTOM enabled:

	payload := etree.NewElement("m:upload")
	payload.CreateAttr("xmlns:m", "urn:example:upload")
	image := payload.CreateElement("m:image")

	msg := message.NewEnvelope(message.SOAP12, payload)
	msg.SetBinaryBytes(image, data, "image/png")

	client := transport.NewHTTPSClient(nil, codec.Config{
	    Version: message.SOAP12,
	    MTOM:    &message.MTOMFeature{Enabled: true, Threshold: 1024},
	})
	resp, err := client.Call(ctx, "https://service.example.com/upload", message.NewPacket(msg))

To serve requests:

	handler := transport.NewHandler(transport.HandlerConfig{
	    Codec: codec.Config{Version: message.SOAP12, MTOM: &message.MTOMFeature{Enabled: true}},
	}, transport.EndpointFunc(serve))
	http.ListenAndServe(":8080", handler)

# License

BSD-2-Clause License
*/
package gomtom
