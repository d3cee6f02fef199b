package ideas

// builtin is the default idea bank: short-form pet and baby-animal clips.
var builtin = []Idea{
	{
		Slug:       "baby-goat-happy-hops",
		Language:   "en",
		Hook:       "A newborn baby goat does tiny excited hops around a camera placed on the grass.",
		Setting:    "Small farm field at golden hour.",
		Characters: "One tiny newborn goat kid.",
		Action:     "Goat hops in energetic, clumsy bursts around the camera, occasionally sliding or stumbling cutely.",
		Safety:     "Gentle terrain with no obstacles.",
		Tags:       []string{"goat", "baby-animal", "nature", "playful", "viral"},
	},
	{
		Slug:       "baby-husky-mimic-sounds",
		Language:   "en",
		Hook:       "A baby babbles, and a husky puppy tries to mimic the baby's sounds.",
		Setting:    "Indoor nursery with warm window light.",
		Characters: "One baby sitting, one husky puppy facing them.",
		Action:     "Baby babbles. Husky pup responds with tiny attempts at howling, tilting its head in confusion.",
		Safety:     "Puppy must be gentle and stable.",
		Tags:       []string{"baby", "husky", "talking", "cute", "sound-mimic"},
	},
	{
		Slug:       "baby-elephant-curious-trunk",
		Language:   "en",
		Hook:       "A baby elephant gently explores a camera lens with its tiny trunk.",
		Setting:    "Sanctuary environment with soft dust and sunlight.",
		Characters: "One young baby elephant.",
		Action:     "Elephant taps and explores the camera with its trunk, then sneezes a tiny dust puff.",
		Safety:     "Elephant must act gentle. No dangerous trunk swings.",
		Tags:       []string{"elephant", "baby-animal", "nature", "viral", "cute"},
	},
	{
		Slug:       "baby-kitten-soft-paws",
		Language:   "en",
		Hook:       "A tiny kitten kneads on the baby's blanket, mesmerising the baby.",
		Setting:    "Indoor blanket scene with close smartphone angle.",
		Characters: "One baby lying on back, one kitten near feet.",
		Action:     "Kitten kneads the blanket gently. Baby reaches out curiously.",
		Safety:     "Kitten must be gentle. No claws extended.",
		Tags:       []string{"baby", "kitten", "kneading", "adorable", "viral"},
	},
	{
		Slug:       "baby-penguin-tiny-waddle",
		Language:   "en",
		Hook:       "A baby penguin waddles toward the camera and slips gently on its belly.",
		Setting:    "Indoor cool habitat with soft ice or snow texture.",
		Characters: "One fluffy penguin chick.",
		Action:     "Penguin waddles, slips, slides forward, then looks proud.",
		Safety:     "No sharp ice. Safe ground.",
		Tags:       []string{"penguin", "cute", "baby-animal", "slip", "viral"},
	},
	{
		Slug:       "hedgehog-tiny-sniff",
		Language:   "en",
		Hook:       "A baby hedgehog sniffs the camera lens repeatedly, twitching its tiny nose.",
		Setting:    "Soft wooden table or blanket.",
		Characters: "One very small hedgehog.",
		Action:     "Hedgehog sniffs and wiggles toward the lens, then curls into a tiny ball.",
		Safety:     "Safe padded surface.",
		Tags:       []string{"hedgehog", "cute", "micro", "sniff", "viral"},
	},
	{
		Slug:       "fawn-curious-head-tilt",
		Language:   "en",
		Hook:       "A newborn fawn hears a soft sound and tilts its head repeatedly.",
		Setting:    "Forest edge or sanctuary meadow.",
		Characters: "One newborn fawn.",
		Action:     "Fawn tilts head slowly left and right, then steps forward shyly.",
		Safety:     "Soft terrain, calm environment.",
		Tags:       []string{"fawn", "baby-animal", "cute", "nature"},
	},
	{
		Slug:       "baby-sloth-slow-hug",
		Language:   "en",
		Hook:       "A baby sloth slowly crawls toward the camera and hugs it.",
		Setting:    "Rescue center, natural wood branches, soft lighting.",
		Characters: "One baby sloth.",
		Action:     "Sloth crawls slowly, then wraps its arms around the camera with an innocent expression.",
		Safety:     "Sloth kept low and safe.",
		Tags:       []string{"sloth", "baby-animal", "hug", "adorable"},
	},
}
