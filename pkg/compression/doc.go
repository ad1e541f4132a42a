// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package compression provides GZIP compression of SOAP message bodies.

The HTTP binding uses it for Content-Encoding: gzip requests and responses.

# Compression

Compress whole bodies:

	compressor := compression.NewCompressor()
	compressed, err := compressor.Compress(payload)
	decompressed, err := compressor.Decompress(compressed)

Or stream them:

	w, err := compressor.NewWriter(out)
	r, err := compression.NewReader(in)

# Content Type Detection

	if compression.ShouldCompress(ct.String()) {
	    // gzip the body
	}

Already compressed types (application/gzip, application/zip, image/jpeg,
image/png, ...) are left alone.

# References

  - GZIP RFC 1952: https://datatracker.ietf.org/doc/html/rfc1952
  - HTTP Content-Encoding: https://datatracker.ietf.org/doc/html/rfc9110#section-8.4
*/
package compression
