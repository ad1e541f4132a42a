// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package transport carries SOAP packets over HTTP(S).

Both sides run every exchange on a fresh copy of a codec.NegotiatingCodec,
so the encoding of a response follows the request it answers: an MTOM
request gets an MTOM response, a client that accepts Fast Infoset gets Fast
Infoset when a provider is configured.

# TLS Configuration

The package recommends TLS 1.3 with fallback to TLS 1.2:

	config := transport.DefaultHTTPSConfig()
	// MinTLSVersion: TLS 1.2
	// MaxTLSVersion: TLS 1.3

For TLS 1.2, the following cipher suites are recommended:
  - TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384
  - TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256
  - TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384
  - TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256

# Client Usage

	client := transport.NewHTTPSClient(&transport.HTTPSConfig{
	    MinTLSVersion: transport.TLS12,
	    Certificates:  []tls.Certificate{clientCert},
	    RootCAs:       certPool,
	}, codec.Config{Version: message.SOAP11})

	response, err := client.Call(ctx, "https://service.example.com/soap", packet)

A response with status 500 is decoded and returned as a *FaultError.

# Server Usage

	handler := transport.NewHandler(transport.HandlerConfig{
	    Codec:           codec.Config{Version: message.SOAP11},
	    MaxRequestBytes: 64 << 20,
	}, endpoint)

	tlsConfig := (&transport.HTTPSConfig{
	    MinTLSVersion: transport.TLS12,
	    Certificates:  []tls.Certificate{serverCert},
	}).ServerTLSConfig()

	server := &http.Server{Addr: ":8443", Handler: handler, TLSConfig: tlsConfig}
	err := server.ListenAndServeTLS("", "")

Decode failures are answered with 415 for unsupported media and 400 for
framing errors.

# References

  - TLS 1.3 RFC 8446: https://datatracker.ietf.org/doc/html/rfc8446
  - TLS 1.2 RFC 5246: https://datatracker.ietf.org/doc/html/rfc5246
*/
package transport
