// Package nmea decodes NMEA-0183 sentences into reading fragments.
//
// Supported sentences:
// - RMC: time, date, status, lat/lon, speed and course
// - GGA: time, fix indicator, lat/lon, satellites in use, HDOP, altitude, geoid
// - GSA: fix mode, satellites in use, PDOP/HDOP/VDOP
// - GST: horizontal and altitude standard deviation
// - GSV: satellites in view
//
// Each sentence is decoded on its own. Combining the fragments of one epoch
// is left to the caller.
package nmea
