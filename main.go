package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-pluto/ceres/api"
	"github.com/go-pluto/ceres/comm"
	"github.com/go-pluto/ceres/config"
	"github.com/go-pluto/ceres/node"
	"github.com/go-pluto/ceres/storage"
)

// Functions

// initStore of the correct implementation specified in the
// config to hold this replica's records.
func initStore(replica config.Replica, env *config.Env) (storage.Store, error) {

	switch replica.StorageAdapter {
	case "Postgres":

		password := replica.StoragePostgres.Password
		if (env != nil) && (env.DBPassword != "") {
			password = env.DBPassword
		}

		// Connect to PostgreSQL database.
		return storage.NewPostgresStore(
			replica.StoragePostgres.IP,
			replica.StoragePostgres.Port,
			replica.StoragePostgres.Database,
			replica.StoragePostgres.User,
			password,
			replica.StoragePostgres.UseTLS,
		)
	default: // Memory
		return storage.NewMemoryStore(), nil
	}
}

// initLogger initializes a JSON gokit-logger set
// to the according log level supplied via cli flag.
func initLogger(loglevel string) log.Logger {

	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger,
		"ts", log.DefaultTimestampUTC,
		"caller", log.DefaultCaller,
	)

	switch strings.ToLower(loglevel) {
	case "info":
		logger = level.NewFilter(logger, level.AllowInfo())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	default:
		logger = level.NewFilter(logger, level.AllowDebug())
	}

	return logger
}

func main() {

	// Set CPUs usable by ceres to all available.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Parse command-line flag that defines a config path.
	configFlag := flag.String("config", "config.toml", "Provide path to configuration file in TOML syntax.")
	nameFlag := flag.String("name", "", "Specify which of the replicas defined in your config file this process should run as.")
	loglevelFlag := flag.String("loglevel", "debug", "This flag sets the default logging level.")
	flag.Parse()

	logger := initLogger(*loglevelFlag)

	if *nameFlag == "" {
		flag.Usage()
		os.Exit(1)
	}

	// Read configuration from file.
	conf, err := config.LoadConfig(*configFlag)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to load the config", "err", err,
		)
		os.Exit(1)
	}

	replica, found := conf.Replicas[*nameFlag]
	if !found {
		level.Error(logger).Log(
			"msg", fmt.Sprintf("no replica named '%s' defined in the config", *nameFlag),
		)
		os.Exit(1)
	}

	logger = log.With(logger, "node", replica.Name)

	// Read deployment secrets from an optional .env file.
	env, err := config.LoadEnv()
	if err != nil {
		level.Debug(logger).Log(
			"msg", "no .env file loaded", "err", err,
		)
	}

	store, err := initStore(replica, env)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to initialize a record store",
			"err", err,
		)
		os.Exit(2)
	}

	metrics := NewCeresMetrics(replica.PrometheusAddr)

	sender := comm.NewSender(
		log.With(logger, "component", "sender"),
		replica.Name,
		conf.SyncAddrs(),
		(time.Duration(conf.SendTimeoutMS) * time.Millisecond),
	)

	// Initialize the node state of this replica.
	service, err := node.NewService(
		log.With(logger, "component", "node"),
		replica.Name, conf.Nodes(), store, sender,
	)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to initialize the node service",
			"err", err,
		)
		os.Exit(3)
	}

	service = node.NewLoggingService(service, log.With(logger, "component", "node"))
	service = node.NewMetricsService(service, metrics.Node.Writes, metrics.Node.Outcomes)

	// Open the sync plane socket for incoming replication.
	socket, err := net.Listen("tcp", replica.ListenSyncAddr)
	if err != nil {
		level.Error(logger).Log(
			"msg", fmt.Sprintf("failed to listen for sync connections on %s", replica.ListenSyncAddr),
			"err", err,
		)
		os.Exit(4)
	}
	defer socket.Close()

	receiver := comm.NewReceiver(
		log.With(logger, "component", "receiver"),
		replica.Name, service,
	)

	go func() {

		level.Info(logger).Log(
			"msg", "sync plane now listening for incoming operations",
			"addr", replica.ListenSyncAddr,
		)

		if err := receiver.Serve(socket); err != nil {
			level.Error(logger).Log(
				"msg", "sync plane receiver failed",
				"err", err,
			)
			os.Exit(5)
		}
	}()

	go runPromHTTP(logger, replica.PrometheusAddr)

	// Serve the client-facing HTTP API in the foreground.
	server := api.NewServer(log.With(logger, "component", "api"), service, store)

	if err := server.ListenAndServe(replica.APIAddr); err != nil {
		level.Error(logger).Log(
			"msg", "failed to serve the HTTP API",
			"err", err,
		)
		os.Exit(6)
	}
}
