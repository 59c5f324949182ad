/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package common

import "time"

const releaseYear = 2026
const releaseMonth = 1
const releaseDay = 1

// Version is the pdfcore release version.
const Version = "0.1.0"

// ReleasedAt is the timestamp associated with Version.
var ReleasedAt = time.Date(releaseYear, releaseMonth, releaseDay, 0, 0, 0, 0, time.UTC)
