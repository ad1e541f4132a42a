// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package contenttype models the MIME Content-Type header used by the SOAP codecs.

A ContentType is immutable once built. Inbound values come from [Parse];
outbound values are assembled with a [Builder] so that version specific codecs
can add an action parameter, a boundary or a root part id without re-parsing
the header.

# SOAPAction

The SOAPAction value carried by a ContentType is always double quoted:

	contenttype.QuoteSOAPAction("urn:ping")   // "\"urn:ping\""
	contenttype.QuoteSOAPAction("")           // "\"\""

Quoting is idempotent, so values that already carry quotes pass unchanged.
*/
package contenttype
