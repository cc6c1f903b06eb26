package main

import (
	"log"

	"github.com/gocql/gocql"
)

func main() {
	cluster := gocql.NewCluster("localhost")
	cluster.Keyspace = "chat"
	cluster.Consistency = gocql.Quorum
	session, err := cluster.CreateSession()
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	tables := []string{
		`CREATE TABLE IF NOT EXISTS communities (
			id text PRIMARY KEY,
			name text,
			description text,
			category text,
			channel_ids list<text>,
			members list<text>,
			created_at timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS channels (
			id text PRIMARY KEY,
			name text,
			description text,
			community_id text,
			created_at timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			channel_id text,
			id bigint,
			author text,
			content text,
			type text,
			created_at timestamp,
			PRIMARY KEY ((channel_id), id)
		) WITH CLUSTERING ORDER BY (id DESC)`,
	}

	for _, cql := range tables {
		if err := session.Query(cql).Exec(); err != nil {
			log.Fatal(err)
		}
	}

	log.Println("Tables created successfully")
}
