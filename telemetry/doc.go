// Package telemetry records bench and runner measurements as time series points.
//
// A Point is one sample tagged with a session and a run number. Sinks deliver points
// to InfluxDB, to an MQTT broker, or to the logger; Multi fans a point out to
// several sinks.
package telemetry
