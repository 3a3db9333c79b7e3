package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Removes duplicate marks entries left by imports that ran before the
// unique (school, exam, class, section, subject) index existed, keeping the
// most recently updated row of each group. Run it before `api migrate` on
// such databases or the index cannot be created.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := os.Getenv("DB_HOST")
		port := os.Getenv("DB_PORT")
		user := os.Getenv("DB_USER")
		password := os.Getenv("DB_PASSWORD")
		dbname := os.Getenv("DB_NAME")
		dsn = user + ":" + password + "@tcp(" + host + ":" + port + ")/" + dbname + "?charset=utf8mb4&parseTime=True&loc=Local"
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if !db.Migrator().HasTable("marks_entries") {
		log.Println("No marks_entries table, nothing to clean")
		return
	}

	res := db.Exec(`
		DELETE older FROM marks_entries older
		JOIN marks_entries newer
		  ON newer.school_id = older.school_id
		 AND newer.exam_id = older.exam_id
		 AND newer.class_id = older.class_id
		 AND newer.section_id = older.section_id
		 AND newer.subject_id = older.subject_id
		 AND (newer.updated_at > older.updated_at
		      OR (newer.updated_at = older.updated_at AND newer.id > older.id))`)
	if res.Error != nil {
		log.Fatalf("Error removing duplicate marks entries: %v", res.Error)
	}

	log.Printf("Database cleanup completed - removed %d duplicate marks entries", res.RowsAffected)
}
