package rabbitmq

import (
	"testing"

	"bus-fleet/internal/general/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestAMQPURL_RoundTrip(t *testing.T) {
	cases := []struct {
		name      string
		cfg       config.RabbitMQConfig
		wantVhost string
	}{
		{
			name:      "default vhost",
			cfg:       config.RabbitMQConfig{Host: "mq", Port: 5672, User: "guest", Password: "guest"},
			wantVhost: "/",
		},
		{
			name:      "named vhost and escaped password",
			cfg:       config.RabbitMQConfig{Host: "mq.internal", Port: 5673, User: "fleet", Password: "s3c@ret/x", VHost: "fleet"},
			wantVhost: "fleet",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := amqpURL(tc.cfg)
			uri, err := amqp.ParseURI(raw)
			if err != nil {
				t.Fatalf("ParseURI(%q): %v", raw, err)
			}
			if uri.Host != tc.cfg.Host || uri.Port != tc.cfg.Port {
				t.Errorf("host:port = %s:%d, want %s:%d", uri.Host, uri.Port, tc.cfg.Host, tc.cfg.Port)
			}
			if uri.Username != tc.cfg.User || uri.Password != tc.cfg.Password {
				t.Errorf("credentials = %s/%s, want %s/%s", uri.Username, uri.Password, tc.cfg.User, tc.cfg.Password)
			}
			if uri.Vhost != tc.wantVhost {
				t.Errorf("vhost = %q, want %q", uri.Vhost, tc.wantVhost)
			}
		})
	}
}
