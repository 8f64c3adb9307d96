package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/robotalks/canlink/pkg/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/canlink/"
)

func init() {
	if val := os.Getenv("CANLINK_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	opts, prefix, err := mqtt.ClientOptionsFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q := mqtt.NewQueue(opts, prefix)
	topicColor := color.New(color.FgCyan).SprintFunc()

	q.Sub("#", func(topic string, payload []byte) {
		name := topic[strings.LastIndexByte(topic, '/')+1:]
		switch name {
		case mqtt.TopicMeta, mqtt.TopicStats:
			log.Printf("%s: %s", topicColor(topic), string(payload))
		case mqtt.TopicRx, mqtt.TopicErr, mqtt.TopicTx:
			f, err := mqtt.DecodeFrame(payload)
			if err != nil {
				log.Printf("%s: bad frame: %v", topicColor(topic), err)
				return
			}
			log.Printf("%s: %s", topicColor(topic), f.ColorString())
		default:
			log.Printf("%s: %d bytes", topicColor(topic), len(payload))
		}
	})
	if err := q.Connect(); err != nil {
		log.Fatalln(err)
	}
	<-(chan struct{})(nil)
}
