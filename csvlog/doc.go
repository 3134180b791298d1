// Package csvlog assembles heterogeneous can2pwm telemetry packets into one
// flat CSV table.
//
// A Spec selects which packet types to log and which of their fields; Build
// turns it into an immutable TableLayout whose header is the concatenation
// of a fixed frame-metadata prefix and every enabled entry's fields. Each
// rendered row has the full table width, with the columns owned by other
// packet types left blank.
package csvlog
