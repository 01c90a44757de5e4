// Package main: Repository katmanı başlatma.
//
// initRepositories, tüm repository implementasyonlarını oluşturur.
// Her repository bir SQL.DB bağlantısı alır ve interface döner.
// Transaction içindeki repository'ler service katmanında tx ile ayrıca kurulur.
package main

import (
	"database/sql"

	"github.com/akinalp/relay/repository"
)

// Repositories, tüm repository instance'larını tutan container struct.
type Repositories struct {
	User         repository.UserRepository
	Relation     repository.RelationRepository
	Message      repository.MessageRepository
	Group        repository.GroupRepository
	GroupMessage repository.GroupMessageRepository
}

// initRepositories, tüm repository'leri oluşturur.
func initRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		User:         repository.NewSQLiteUserRepo(db),
		Relation:     repository.NewSQLiteRelationRepo(db),
		Message:      repository.NewSQLiteMessageRepo(db),
		Group:        repository.NewSQLiteGroupRepo(db),
		GroupMessage: repository.NewSQLiteGroupMessageRepo(db),
	}
}
