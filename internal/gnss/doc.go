// Package gnss holds the GNSS backends: a raw NMEA serial reader, a gpsd
// client and a UDP replay listener. Each one implements driver.Backend and
// publishes into a store.GNSS hub.
package gnss
