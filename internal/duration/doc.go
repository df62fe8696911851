// Package duration turns recognized timer-display text into an hours/minutes
// duration.
//
// OCR output from a seven-segment display is noisy: the colon is often lost,
// seconds may be present, and the digit count varies. Parse applies a fixed
// set of heuristics:
//
//  1. Surrounding whitespace is trimmed and colons are stripped to form a
//     digits-only candidate.
//  2. Text that splits on ":" into exactly two integer parts with hours in
//     [0,99] and minutes in [0,59] is accepted as is.
//  3. Otherwise the candidate is interpreted by its length:
//     1-2 digits are minutes, 3 digits are H+MM, 4 digits are HH+MM,
//     5 digits are HHH+MM (falling back to HH+MM when the minutes are out of
//     range), 6 digits are HH+MM+SS with the seconds dropped.
//  4. The result must have hours in [0,99] and minutes in [0,59].
//
// There is no fallback duration. Guessing a wrong timer is worse than asking
// the user, so a failed parse returns an error wrapping ErrParseFailure.
package duration
