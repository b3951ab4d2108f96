package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"giftfeed/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seeder builds demo entities and persists them to the database.
type Seeder struct {
	db *gorm.DB
	r  *rand.Rand
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db: db,
		r:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll removes all user-generated data. Built-in taxonomies are kept.
// PostgreSQL only.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	sql := `TRUNCATE TABLE notifications, device_tokens, wishlists, likes,
		comments, post_images, posts, profile_following, profiles,
		password_reset_codes, registration_codes, users
		RESTART IDENTITY CASCADE;`
	return s.db.Exec(sql).Error
}

// SeedUsers creates count verified users with profiles. Every seeded user
// has the password "password123".
func (s *Seeder) SeedUsers(count int) ([]models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	genders := []string{models.GenderMale, models.GenderFemale, models.GenderOther}

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		user := models.User{
			Email:     fmt.Sprintf("%d_%s", i, gofakeit.Email()),
			FirstName: gofakeit.FirstName(),
			LastName:  gofakeit.LastName(),
			Password:  string(hashedPassword),
			IsActive:  true,
		}
		if err := s.db.Create(&user).Error; err != nil {
			log.Printf("Failed to create user %s: %v", user.Email, err)
			continue
		}

		dob := gofakeit.DateRange(
			time.Now().AddDate(-60, 0, 0),
			time.Now().AddDate(-18, 0, 0),
		)
		profile := models.Profile{
			UserID:      user.ID,
			Image:       fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
			DateOfBirth: &dob,
			Gender:      genders[s.r.Intn(len(genders))],
		}
		if err := s.db.Create(&profile).Error; err != nil {
			return nil, fmt.Errorf("create profile for %s: %w", user.Email, err)
		}
		users = append(users, user)
	}

	log.Printf("Created %d users", len(users))
	return users, nil
}

// SeedPosts creates count approved gift posts spread over random authors,
// categories, occasions and creation dates.
func (s *Seeder) SeedPosts(users []models.User, count int) ([]models.Post, error) {
	if len(users) == 0 {
		return nil, fmt.Errorf("no users to attribute posts to")
	}

	var categories []models.Category
	if err := s.db.Find(&categories).Error; err != nil {
		return nil, err
	}
	var occasions []models.Occasion
	if err := s.db.Find(&occasions).Error; err != nil {
		return nil, err
	}

	targets := []string{models.TargetMen, models.TargetWomen, models.TargetKids}

	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		user := users[s.r.Intn(len(users))]

		post := models.Post{
			UserID:   user.ID,
			Content:  fmt.Sprintf("%s. %s", gofakeit.ProductName(), gofakeit.Sentence(8)),
			Target:   targets[s.r.Intn(len(targets))],
			Approved: true,
			// spread creation dates over the last 90 days so trending
			// windows have something to bite on
			CreatedAt: time.Now().Add(-time.Duration(s.r.Intn(90*24)) * time.Hour),
		}
		if len(categories) > 0 && s.r.Float32() < 0.8 {
			post.CategoryID = &categories[s.r.Intn(len(categories))].ID
		}
		if len(occasions) > 0 && s.r.Float32() < 0.6 {
			post.OccasionID = &occasions[s.r.Intn(len(occasions))].ID
		}
		if s.r.Float32() < 0.3 {
			post.ExternalLink = gofakeit.URL()
		}
		if s.r.Float32() < 0.5 {
			post.Images = []models.PostImage{
				{Image: fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID())},
			}
		}

		if err := s.db.Create(&post).Error; err != nil {
			log.Printf("Failed to create post: %v", err)
			continue
		}
		posts = append(posts, post)
	}

	log.Printf("Created %d posts", len(posts))
	return posts, nil
}

// SeedEngagement sprinkles likes, wishlists, comments and follows across the
// seeded users and posts.
func (s *Seeder) SeedEngagement(users []models.User, posts []models.Post) error {
	if len(users) == 0 || len(posts) == 0 {
		return nil
	}

	for _, post := range posts {
		for _, user := range users {
			if user.ID == post.UserID {
				continue
			}
			if s.r.Float32() < 0.15 {
				err := s.db.Clauses(clause.OnConflict{DoNothing: true}).
					Create(&models.Like{UserID: user.ID, PostID: post.ID}).Error
				if err != nil {
					return err
				}
			}
			if s.r.Float32() < 0.08 {
				err := s.db.Clauses(clause.OnConflict{DoNothing: true}).
					Create(&models.Wishlist{UserID: user.ID, PostID: post.ID}).Error
				if err != nil {
					return err
				}
			}
			if s.r.Float32() < 0.05 {
				comment := models.Comment{
					PostID:  post.ID,
					UserID:  user.ID,
					Content: gofakeit.Sentence(10),
				}
				if err := s.db.Create(&comment).Error; err != nil {
					return err
				}
			}
		}
	}

	// Follow graph: each user follows a handful of others.
	var profiles []models.Profile
	if err := s.db.Find(&profiles).Error; err != nil {
		return err
	}
	for _, follower := range profiles {
		for _, followed := range profiles {
			if follower.ID == followed.ID {
				continue
			}
			if s.r.Float32() < 0.1 {
				err := s.db.Table("profile_following").
					Clauses(clause.OnConflict{DoNothing: true}).
					Create(map[string]any{
						"follower_id": follower.ID,
						"followed_id": followed.ID,
					}).Error
				if err != nil {
					return err
				}
			}
		}
	}

	log.Println("Engagement seeded")
	return nil
}
