// Package sensors holds the vehicle sensor backends: a UDP replay listener
// and an I2C IMU poller. Each one implements driver.Backend and publishes
// into a store.Sensors hub.
package sensors
