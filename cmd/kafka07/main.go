// Command kafka07 publishes messages to and consumes messages from a Kafka 0.7
// broker.
//
//	kafka07 publish --topic test --message hello
//	echo hello | kafka07 publish --topic test --compression gzip
//	kafka07 consume --topic test --offset 0 --count 10
//
// Settings come from defaults, then the --config YAML file, then KAFKA_*
// environment variables, then flags.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
