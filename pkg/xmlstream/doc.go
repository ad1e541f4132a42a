// Package xmlstream provides a pull-style XML token reader and a push-style
// XML writer used by the SOAP codecs.
//
// The reader keeps both prefixes and resolved namespace URIs, so a document
// read from the wire can be written back with its original prefixes. Codecs
// decorate a Reader or Writer by embedding it and overriding the calls they
// intercept, as the MTOM codec does for xop:Include.
package xmlstream
