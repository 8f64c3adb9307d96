// Package canlink contains the protobuf schema of frames exchanged by the
// bridge over MQTT.
package canlink

//go:generate protoc -I../.. --go_out=paths=source_relative:../.. ../../canlink/v1/frame.proto
