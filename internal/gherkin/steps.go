package gherkin

import (
	"fmt"
	"time"

	"github.com/cucumber/godog"

	"testprobe/internal/kafkastream"
	"testprobe/internal/probetypes"
)

// KafkaDSL exposes the step definitions Gherkin scenarios use to drive
// the probe's Kafka producer and consumer streams (spec.md §1: "step
// definitions interact with those streams through a DSL").
type KafkaDSL struct {
	Producers *kafkastream.ProducerSupervisor
	Consumers *kafkastream.ConsumerSupervisor
}

// Register binds the DSL's step definitions into a scenario context.
func (d *KafkaDSL) Register(sc *godog.ScenarioContext) {
	sc.Step(`^I publish a "([^"]*)" event with correlation id "([^"]*)" to topic "([^"]*)"$`, d.publishEvent)
	sc.Step(`^I should receive the event with correlation id "([^"]*)" on topic "([^"]*)" within (\d+) seconds$`, d.expectEvent)
}

func (d *KafkaDSL) publishEvent(eventType, correlationID, topic string) error {
	stream, ok := d.Producers.Get(topic)
	if !ok {
		return fmt.Errorf("no producer stream started for topic %q", topic)
	}

	key, err := kafkastream.EncodeCloudEventKey(cloudEventFor(eventType, correlationID), 0)
	if err != nil {
		return err
	}

	reply := make(chan kafkastream.ProduceReply, 1)
	result := stream.Enqueue(key, []byte("{}"), nil, reply)
	if result != kafkastream.Enqueued {
		return fmt.Errorf("publish to topic %q: %s", topic, result)
	}

	ack := <-reply
	if !ack.Ack {
		return fmt.Errorf("publish to topic %q was nacked: %v", topic, ack.Err)
	}
	return nil
}

func (d *KafkaDSL) expectEvent(correlationID, topic string, timeoutSeconds int) error {
	stream, ok := d.Consumers.Get(topic)
	if !ok {
		return fmt.Errorf("no consumer stream started for topic %q", topic)
	}

	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	for time.Now().Before(deadline) {
		if _, found := stream.Registry().Get(correlationID); found {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("event with correlation id %q on topic %q was not received within %ds", correlationID, topic, timeoutSeconds)
}

func cloudEventFor(eventType, correlationID string) probetypes.CloudEvent {
	return probetypes.CloudEvent{
		ID:             correlationID,
		Type:           eventType,
		PayloadVersion: "v1",
		CorrelationID:  correlationID,
	}
}
