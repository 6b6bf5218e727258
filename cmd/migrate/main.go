package main

import (
	"errors"
	"flag"
	"log"

	"campusfind/internal/pkg/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	down := flag.Bool("down", false, "roll back the last migration")
	force := flag.Int("force", -1, "force the schema version (clears the dirty flag)")
	dir := flag.String("dir", "migrations", "migration directory")
	flag.Parse()

	config.LoadConfig()
	if config.GlobalConfig.Store.Driver != config.DriverPostgres {
		log.Fatalf("migrations only apply to the postgres driver (store.driver=%s)", config.GlobalConfig.Store.Driver)
	}

	m, err := migrate.New("file://"+*dir, config.GlobalConfig.Database.URL())
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	switch {
	case *force >= 0:
		err = m.Force(*force)
	case *down:
		err = m.Steps(-1)
	default:
		err = m.Up()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			log.Fatalf("database is dirty at version %d, fix it and rerun with -force %d", dirty.Version, dirty.Version)
		}
		log.Fatal(err)
	}

	version, isDirty, _ := m.Version()
	log.Printf("Migration successful (version=%d dirty=%v)", version, isDirty)
}
