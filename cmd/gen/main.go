package main

import (
	"school-api/config"
	"school-api/internal/database"
	"school-api/internal/database/model"
	"school-api/pkg/logger"

	"gorm.io/gen"
)

func main() {
	if err := config.Init("config.yaml"); err != nil {
		logger.Fatal(err, "failed to load config")
	}

	db, err := database.Open(config.Cfg)
	if err != nil {
		logger.Fatal(err, "failed to connect to database")
	}
	defer database.Close(db)

	g := gen.NewGenerator(gen.Config{
		OutPath:        "internal/database/query",
		ModelPkgPath:   "internal/database/model",
		Mode:           gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldCoverable: true,
	})

	g.UseDB(db)

	g.ApplyBasic(model.User{}, model.TeacherProfile{})

	g.Execute()
}
