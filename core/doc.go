/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package core defines the primitive PDF object types and implements the
// cross-reference resolver: opening a byte source, locating and walking its
// xref chain (classical tables and xref streams alike), expanding compressed
// object streams, assembling the trailer, and resolving any indirect
// reference to its direct value on demand. Repair fallbacks for malformed
// xref data are also provided here.
package core
