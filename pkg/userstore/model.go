package userstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/taskchain/taskchain/pkg/user"
)

// UserDao is a data access object that maps directly to the 'users' table in PostgreSQL.
type UserDao struct {
	bun.BaseModel  `bun:"table:users,alias:u"`
	ID             string    `bun:"id,pk,type:varchar(128)"`
	GithubUsername *string   `bun:"github_username,unique,type:varchar(39)"`
	WalletAddress  *string   `bun:"wallet_address,type:varchar(42)"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// toUserDao converts a user.User to UserDao.
func toUserDao(usr *user.User) *UserDao {
	dao := &UserDao{
		ID:        usr.ID,
		CreatedAt: usr.CreatedAt,
	}
	if usr.GithubUsername != "" {
		dao.GithubUsername = &usr.GithubUsername
	}
	if usr.WalletAddress != "" {
		dao.WalletAddress = &usr.WalletAddress
	}
	return dao
}

// fromUserDao converts a UserDao to user.User.
func fromUserDao(dao *UserDao) *user.User {
	usr := &user.User{
		ID:        dao.ID,
		CreatedAt: dao.CreatedAt.UTC(),
	}
	if dao.GithubUsername != nil {
		usr.GithubUsername = *dao.GithubUsername
	}
	if dao.WalletAddress != nil {
		usr.WalletAddress = *dao.WalletAddress
	}
	return usr
}
