package policy

import "math/rand"

// Scripted prompt pools. One is picked at random per use; every variant in a
// pool must be safe to utter in any session that reaches it.

const crisisLineResponse = "It might not always feel like it, but there are people who can help. " +
	"Please know that you can call the National Suicide Prevention Lifeline, " +
	"twenty-four hours a day, seven days a week. Their number is, 1-800-273-8255. " +
	"Again, that's 1-800-273-8255."

const unsafeUserResponse = "I don't feel comfortable talking about that. What else can I help you with?"

const greetingLine = "Hi, I'm your task assistant! "

var unsafeBotResponses = []string{
	"Hmm. I can't think of a better way to say something so delicate. Shall we move on?",
	"Well, this is awkward. What I want to say is a bit sensitive. Shall we move on?",
	"Now that I think about it, what I want to say is a bit delicate. Is it okay if we continue?",
}

var dangerousTaskResponses = []string{
	"Actually, I can't help you with potentially dangerous tasks, but it was great talking to you! Bye for now!",
}

var notUnderstoodResponses = []string{
	"Gosh, I had trouble understanding that. If it's alright, could you say it differently? Or ask for something else?",
	"Funny enough, I just wasn't sure what to do with what you said. Mind saying it in a different way?",
}

var asrErrorResponses = []string{
	"Hang on, I heard '%s', just wanted to let you know since I'm not super sure what to make of it.",
	"I heard '%s', maybe there's fluff in the microphone?",
}

var introPrompts = []string{
	"I know about cooking and home improvement. What can I help you with?",
	"I'm excited to help you find a home project, or cook a tasty recipe. What shall we make today?",
	"I can help with cooking and home improvement. What would you like to make?",
}

var undefinedDomainResponses = []string{
	"Finding recipes and walking you through home improvement projects is what I do best. " +
		"I don't yet know about other areas though.",
	"I'm not very fluent in things other than cooking and home improvement. " +
		"How about we walk through a recipe together?",
}

var undefinedDomainEscalated = []string{
	"I can help you with a task if you say something like: 'help me make a rice dish', or, " +
		"'help me build a bird house'. What do you feel like doing?",
	"By just saying 'cooking' or 'I want to do some home improvement', we can find a great project together!",
}

var medicalResponses = []string{
	"FYI, I can't give you medical advice. But cooking and home improvement is where I really shine! " +
		"What do we fancy making today?",
}

var medicalEscalated = []string{
	"I really can't give you medical advice, but there are great recipes and projects we could do together! " +
		"Try saying 'how to make the best noodle soup'.",
}

var financialResponses = []string{
	"FYI, I can't give you financial advice, my comfort zone is cooking and home improvement. " +
		"We should try something together!",
}

var financialEscalated = []string{
	"I really can't give you financial advice, but I'm great at crafts and cooking! " +
		"Just say: 'new york style pizza', or, 'let's do origami'.",
}

var legalResponses = []string{
	"FYI, I can't give you legal advice. But I can help you cook and do some cool home projects! " +
		"Try saying: 'cooking'.",
}

var legalEscalated = []string{
	"I really can't give you legal advice. What I'd enjoy most is to walk through a tasty recipe, " +
		"or a home project together.",
}

var moreResultsIntros = []string{
	"Okay. Here are other great options I found. ",
	"Alright. I also found these other matches you might like. ",
}

var previousResultsIntros = []string{
	"Sure. Here are the previous matches I found. ",
	"Got it. These were the previous options I brought up. ",
}

var allResultsPrompts = []string{
	"That's all I've got. If you don't like these matches, you can say cancel to search for something else. ",
	"I don't have any more matches for you. You can hear the previous results again, or say cancel to search for something else. ",
}

var firstResultSetPrompts = []string{
	"We're back at the first set of matches. ",
	"Okay, I'll tell you the first set of choices again. ",
}

var outOfRangeSelectResponses = []string{
	"You can only pick one of the options I mentioned. Which would you like? ",
	"You've just got these three options to choose from. Which one sounds good? ",
}

var selectPossibilityPrompts = []string{
	"You can select one of the results by saying the name of the result. ",
	"You can also select a result if you'd like. ",
}

var executionNoCancelResponses = []string{
	"It's a shame, we can't cancel a task that's already in progress just now. " +
		"But we can stop the conversation if you want to start over. No pressure, but I'm excited to keep going!",
	"Gosh, I can't cancel an ongoing task to do a new search. " +
		"If you wish to start over, you can stop the conversation. It'd be great to keep going though!",
}

var pausedResponses = []string{
	"I have paused the conversation.",
	"Conversation paused.",
	"Paused for now, wake me if you need me!",
}

var qaFallbackResponse = "Great question! I don't know the answer but I don't want that to slow us down. " +
	"I'm really keen to keep going!"

var chitChatFallbacks = []string{
	"That's pretty neat! Let's keep going!",
}

const cookingFarewell = "Great job, your recipe is complete and you managed to make food with a robot, " +
	"how awesome! I had lots of fun cooking with you, hope you had too!"

const diyFarewellFormat = "You have reached the end of your project, how awesome! " +
	"I hope you enjoyed my help with %s and you did it with a robot."

const safetyWarning = "Before we get started, please be careful when using any tools or equipment. " +
	"Remember, safety first! "

const wantToStart = "Do you want to start?"

var jokeTriggerWords = []string{"joke", "funny", "laugh"}

// pick returns a random element of a prompt pool.
func pick(pool []string) string {
	return pool[rand.Intn(len(pool))]
}
