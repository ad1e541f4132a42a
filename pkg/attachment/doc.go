// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package attachment defines the attachment and data handler abstractions shared
by the MIME, MTOM and SwA codecs.

An [Attachment] offers several views of the same part: a byte slice, a
streaming [DataHandler], an XML source, a raw reader and a WriteTo copy.
Implementations compute each view on demand and cache it, so requesting a
second view never re-reads bytes that are already held in memory.

Attachments are collected in a [Set], keyed by content-id. A set created with
[NewLazySet] resolves misses against a [Source], typically a multipart parser
that has not yet read the rest of the stream.
*/
package attachment
