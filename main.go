package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/distsocial/streamnode/db"
	"github.com/distsocial/streamnode/federation"
	"github.com/distsocial/streamnode/resolve"
	"github.com/distsocial/streamnode/util"
	"github.com/distsocial/streamnode/web"
)

func main() {

	conf, err := util.ReadConf()
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Println("Configuration: ")
	fmt.Println(util.PrettyPrint(conf))

	database := db.GetDB()

	registry := federation.NewRegistry(conf)
	client := federation.NewClient(registry, time.Duration(conf.Conf.FetchTimeout)*time.Second)
	resolver := resolve.NewResolver(database, registry, client, conf)

	startServing(conf, database, registry, resolver)
}

func startServing(conf *util.AppConfig, database *db.DB, registry *federation.Registry, resolver *resolve.Resolver) {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := web.Serve(conf, database, registry, resolver); err != nil {
			log.Fatalln(err)
		}
	}()

	<-done
	log.Println("Stopping server")
	if err := database.Close(); err != nil {
		log.Fatalln(err)
	}
}
